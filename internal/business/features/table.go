// Package features 合并提取流水线产出的宽表（基因、k-mer、SNP），生成单样本特征行。
package features

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/jobctx"
)

// IDColumn 样本标识列
const IDColumn = "Genome_ID"

// 提取流水线在任务工作目录中写出的文件名
const (
	GeneTableFile = "gene_presence_production.csv"
	KmerTableFile = "kmer_production.csv"
	SNPTableFile  = "snp_production.csv"
)

// Table 宽表：一列样本标识 + 若干特征列，单元格保留原始文本
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// FeatureColumns 非标识列数量
func (t *Table) FeatureColumns() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, c := range t.Columns {
		if c != IDColumn {
			n++
		}
	}
	return n
}

// idIndex 返回标识列下标，不存在时返回 MalformedTable
func (t *Table) idIndex() (int, error) {
	for i, c := range t.Columns {
		if c == IDColumn {
			return i, nil
		}
	}
	return -1, errorutil.MalformedTable("%s table has no %s column", t.Name, IDColumn)
}

// FromPayload 把任务消息中的内联表转换为 Table
func FromPayload(name string, p *model.TablePayload) (*Table, error) {
	if p == nil {
		return nil, nil
	}
	t := &Table{Name: name, Columns: append([]string(nil), p.Columns...)}
	for i, row := range p.Rows {
		if len(row) != len(p.Columns) {
			return nil, errorutil.MalformedTable("%s table row %d has %d cells, want %d", name, i, len(row), len(p.Columns))
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellString(v)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

// ReadCSV 从 reader 解析带表头的 CSV
func ReadCSV(name string, r io.Reader) (*Table, error) {
	return readDelimited(name, r, ',')
}

// ReadTSV 解析制表符分隔的表（ABRicate summary 输出）
func ReadTSV(name string, r io.Reader) (*Table, error) {
	return readDelimited(name, r, '\t')
}

func readDelimited(name string, r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = comma == '\t'
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errorutil.MalformedTable("%s table: %v", name, err)
	}
	if len(records) == 0 {
		return nil, errorutil.MalformedTable("%s table is empty", name)
	}

	t := &Table{Name: name, Columns: records[0]}
	for i, rec := range records[1:] {
		if len(rec) != len(t.Columns) {
			return nil, errorutil.MalformedTable("%s table line %d has %d cells, want %d", name, i+2, len(rec), len(t.Columns))
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// LoadCSV 从任务工作目录读取 CSV 表
func LoadCSV(ctx context.Context, name, file string) (*Table, error) {
	path, err := jobctx.Path(ctx, file)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(name, f)
}

// LoadTables 读取工作目录中的三张表
// 基因表必须存在；k-mer / SNP 表缺失时视为只有标识列的空表
func LoadTables(ctx context.Context) (gene, kmer, snp *Table, err error) {
	gene, err = LoadCSV(ctx, "gene", GeneTableFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil, errorutil.MalformedTable("gene table %s not found", GeneTableFile)
		}
		return nil, nil, nil, err
	}
	if kmer, err = loadOptional(ctx, "kmer", KmerTableFile); err != nil {
		return nil, nil, nil, err
	}
	if snp, err = loadOptional(ctx, "snp", SNPTableFile); err != nil {
		return nil, nil, nil, err
	}
	return gene, kmer, snp, nil
}

func loadOptional(ctx context.Context, name, file string) (*Table, error) {
	t, err := LoadCSV(ctx, name, file)
	if errors.Is(err, os.ErrNotExist) {
		return &Table{Name: name, Columns: []string{IDColumn}}, nil
	}
	return t, err
}

// isMissing 合并后按 0 填充的单元格
func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return true
	}
	return false
}
