package features

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// FeatureRow 单个样本的特征值（特征名 → 整数值）
type FeatureRow struct {
	SampleID string
	Values   map[string]int
}

// Has 特征是否出现在合并结果中
func (r *FeatureRow) Has(name string) bool {
	_, ok := r.Values[name]
	return ok
}

// QualityMetrics 原始表的特征列数量
type QualityMetrics struct {
	GenesDetected int
	KmersMatched  int
	SNPsDetected  int
}

// Metrics 统计三张原始表的非标识列数量
func Metrics(gene, kmer, snp *Table) QualityMetrics {
	return QualityMetrics{
		GenesDetected: gene.FeatureColumns(),
		KmersMatched:  kmer.FeatureColumns(),
		SNPsDetected:  snp.FeatureColumns(),
	}
}

// Merge 以基因表为锚左连接 k-mer 表和 SNP 表，生成一个特征行
//
// 1. 每张表必须包含 Genome_ID 列，且最多只有一个样本
// 2. 同一样本的多行按列取最大值
// 3. 缺失值填 0，非标识列转为整数
// 4. 同名特征出现在多张表中时取最大值
func Merge(gene, kmer, snp *Table) (*FeatureRow, error) {
	if gene == nil {
		return nil, errorutil.MalformedTable("gene table is required")
	}
	geneID, geneValues, err := collapse(gene)
	if err != nil {
		return nil, err
	}
	if geneID == "" {
		return nil, errorutil.MalformedTable("gene table has no sample row")
	}

	row := &FeatureRow{SampleID: geneID, Values: geneValues}
	for _, t := range []*Table{kmer, snp} {
		if t == nil {
			continue
		}
		id, values, err := collapse(t)
		if err != nil {
			return nil, err
		}
		// 左连接：其他样本的行不参与合并，特征列仍以 0 出现
		matched := id == geneID
		for name, v := range values {
			if !matched {
				v = 0
			}
			if old, ok := row.Values[name]; !ok || v > old {
				row.Values[name] = v
			}
		}
	}
	return row, nil
}

// collapse 校验单表并把同一样本的多行按列取最大值
func collapse(t *Table) (string, map[string]int, error) {
	idx, err := t.idIndex()
	if err != nil {
		return "", nil, err
	}

	values := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if i != idx {
			values[c] = 0
		}
	}

	sampleID := ""
	for r, cells := range t.Rows {
		id := strings.TrimSpace(cells[idx])
		if id == "" {
			return "", nil, errorutil.MalformedTable("%s table row %d has a blank %s", t.Name, r+1, IDColumn)
		}
		if sampleID == "" {
			sampleID = id
		} else if id != sampleID {
			return "", nil, errorutil.MalformedTable("%s table holds more than one sample (%q, %q)", t.Name, sampleID, id)
		}
		for i, raw := range cells {
			if i == idx {
				continue
			}
			v, err := parseCell(raw)
			if err == errOutOfRange {
				return "", nil, errorutil.MalformedTable("%s table row %d column %q: value %q out of range", t.Name, r+1, t.Columns[i], raw)
			}
			if err != nil {
				return "", nil, errorutil.MalformedTable("%s table row %d column %q: non-numeric value %q", t.Name, r+1, t.Columns[i], raw)
			}
			if v > values[t.Columns[i]] {
				values[t.Columns[i]] = v
			}
		}
	}
	return sampleID, values, nil
}

var errOutOfRange = errors.New("value out of int32 range")

// parseCell 空值填 0；数值按截断转整数（"1.0" → 1），超出 int32 范围的值拒绝
func parseCell(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) || math.IsNaN(f) {
		return 0, strconv.ErrSyntax
	}
	f = math.Trunc(f)
	if math.IsInf(f, 0) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errOutOfRange
	}
	return int(f), nil
}
