package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// 基因汇总表的原始标识列
const summaryIDColumn = "#FILE"

// k-mer 提取参数
const (
	KmerSize       = 10
	MinHitIdentity = 80.0
	MinHitLength   = 50
)

// BinarizeGeneSummary 把基因检测汇总表（覆盖度字符串、"." 表示未检出）转成 0/1 基因表
//
// 1. #FILE 列重命名为 Genome_ID，并统一替换为 sampleID
// 2. 删除 NUM_FOUND 统计列
// 3. 0 / 空 / 0.0 / . / nan 记为 0，其余记为 1
// 4. 多行按列取最大值，输出单行
func BinarizeGeneSummary(summary *Table, sampleID string) (*Table, error) {
	idIdx := -1
	for i, c := range summary.Columns {
		if c == summaryIDColumn || c == IDColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, errorutil.MalformedTable("gene summary has no %s column", summaryIDColumn)
	}

	var keep []int
	out := &Table{Name: "gene", Columns: []string{IDColumn}}
	for i, c := range summary.Columns {
		if i == idIdx || strings.Contains(strings.ToUpper(c), "NUM_FOUND") {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, c)
	}

	row := make([]string, len(out.Columns))
	row[0] = sampleID
	for j := range keep {
		row[j+1] = "0"
	}
	for _, cells := range summary.Rows {
		for j, i := range keep {
			if geneDetected(cells[i]) {
				row[j+1] = "1"
			}
		}
	}
	out.Rows = [][]string{row}
	return out, nil
}

func geneDetected(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "0", "", "0.0", ".", "nan":
		return false
	}
	return true
}

// SNPFeatureName 生成 SNP 特征名：<去版本号的染色体>_<位置>_<ref>><alt>
func SNPFeatureName(chrom, pos, ref, alt string) (string, error) {
	parts := []string{strings.TrimSpace(chrom), strings.TrimSpace(pos), strings.TrimSpace(ref), strings.TrimSpace(alt)}
	for _, p := range parts {
		switch p {
		case "", ".", "nan", "NaN":
			return "", fmt.Errorf("incomplete variant %q", strings.Join(parts, " "))
		}
	}
	contig := strings.SplitN(parts[0], ".", 2)[0]
	return fmt.Sprintf("%s_%s_%s>%s", contig, parts[1], parts[2], parts[3]), nil
}

// Variant 变异检测输出的一条记录
type Variant struct {
	Chrom string
	Pos   string
	Ref   string
	Alt   string
}

// SNPTableFromVariants 只保留训练词表中出现过的 SNP，生成单行 SNP 表
func SNPTableFromVariants(sampleID string, variants []Variant, vocabulary map[string]bool) *Table {
	found := make(map[string]bool)
	for _, v := range variants {
		name, err := SNPFeatureName(v.Chrom, v.Pos, v.Ref, v.Alt)
		if err != nil {
			continue
		}
		if vocabulary[name] {
			found[name] = true
		}
	}

	names := sortedKeys(found)
	t := &Table{Name: "snp", Columns: append([]string{IDColumn}, names...)}
	row := []string{sampleID}
	for range names {
		row = append(row, "1")
	}
	t.Rows = [][]string{row}
	return t
}

// ReadSnippyVariants 解析变异检测输出的 snps.tab（制表符分隔，需要 CHROM / POS / REF / ALT 列）
func ReadSnippyVariants(r io.Reader) ([]Variant, error) {
	t, err := ReadTSV("snippy", r)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[strings.TrimSpace(c)] = i
	}
	for _, col := range []string{"CHROM", "POS", "REF", "ALT"} {
		if _, ok := idx[col]; !ok {
			return nil, errorutil.MalformedTable("snippy table has no %s column", col)
		}
	}

	variants := make([]Variant, 0, len(t.Rows))
	for _, cells := range t.Rows {
		variants = append(variants, Variant{
			Chrom: cells[idx["CHROM"]],
			Pos:   cells[idx["POS"]],
			Ref:   cells[idx["REF"]],
			Alt:   cells[idx["ALT"]],
		})
	}
	return variants, nil
}

// blast -outfmt "6 qseqid sseqid pident length qseq sseq" 的列
const (
	blastColumns     = 6
	blastColIdentity = 2
	blastColLength   = 3
	blastColSubject  = 5
)

// ReadBlastHits 解析无表头的 tblastn 表格输出；空输入表示没有命中
func ReadBlastHits(r io.Reader) ([]ProteinHit, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = blastColumns
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errorutil.MalformedTable("blast hits: %v", err)
	}

	hits := make([]ProteinHit, 0, len(records))
	for i, rec := range records {
		identity, err := strconv.ParseFloat(strings.TrimSpace(rec[blastColIdentity]), 64)
		if err != nil {
			return nil, errorutil.MalformedTable("blast hits line %d: bad pident %q", i+1, rec[blastColIdentity])
		}
		length, err := strconv.Atoi(strings.TrimSpace(rec[blastColLength]))
		if err != nil {
			return nil, errorutil.MalformedTable("blast hits line %d: bad length %q", i+1, rec[blastColLength])
		}
		hits = append(hits, ProteinHit{Identity: identity, Length: length, Sequence: strings.TrimSpace(rec[blastColSubject])})
	}
	return hits, nil
}

// ProteinHit 蛋白比对命中（目标序列可能带 gap）
type ProteinHit struct {
	Identity float64
	Length   int
	Sequence string
}

// KmerTableFromHits 统计命中序列中的 k-mer 次数，只保留训练词表中出现过的 k-mer
//
// 1. 过滤一致性 < 80 或长度 < 50 的命中
// 2. 去掉 gap 后按长度 10 滑窗，跳过含 * 或 X 的窗口
func KmerTableFromHits(sampleID string, hits []ProteinHit, vocabulary map[string]bool) *Table {
	counts := make(map[string]int)
	for _, h := range hits {
		if h.Identity < MinHitIdentity || h.Length < MinHitLength {
			continue
		}
		seq := strings.ReplaceAll(h.Sequence, "-", "")
		for i := 0; i+KmerSize <= len(seq); i++ {
			k := seq[i : i+KmerSize]
			if strings.ContainsAny(k, "*X") || !vocabulary[k] {
				continue
			}
			counts[k]++
		}
	}

	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)

	t := &Table{Name: "kmer", Columns: append([]string{IDColumn}, names...)}
	row := []string{sampleID}
	for _, k := range names {
		row = append(row, fmt.Sprint(counts[k]))
	}
	t.Rows = [][]string{row}
	return t
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
