// Package templates 加载训练期固定的特征模板，并把特征行对齐到模板形状。
package templates

import (
	"bufio"
	"io"
	"math"
	"os"
	"strings"

	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Template 有序、去重、只读的特征名序列
type Template struct {
	family   string
	features []string
}

// New 创建模板（空模板或重复特征名视为不可用）
func New(family string, names []string) (*Template, error) {
	if len(names) == 0 {
		return nil, errorutil.TemplateUnavailable(nil, "template %q is empty", family)
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, errorutil.TemplateUnavailable(nil, "template %q has duplicate feature %q", family, n)
		}
		seen[n] = true
	}
	return &Template{family: family, features: append([]string(nil), names...)}, nil
}

// Parse 每行一个特征名，去掉首尾空白，跳过空行
func Parse(family string, r io.Reader) (*Template, error) {
	var names []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errorutil.TemplateUnavailable(err, "read template %q", family)
	}
	return New(family, names)
}

// Load 从文件加载模板
func Load(family, path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errorutil.TemplateUnavailable(err, "open template %q", family)
	}
	defer f.Close()
	return Parse(family, f)
}

// Family 模板所属模型族
func (t *Template) Family() string { return t.family }

// Len 模板维度
func (t *Template) Len() int { return len(t.features) }

// Names 特征名副本
func (t *Template) Names() []string {
	return append([]string(nil), t.features...)
}

// Alignment 对齐结果
type Alignment struct {
	Family   string
	Vector   []float64
	Matched  int
	Total    int
	Coverage float64
}

// Align 按模板顺序取特征值，缺失填 0；覆盖率 = 命中数 / 模板长度
func (t *Template) Align(row *features.FeatureRow) Alignment {
	a := Alignment{
		Family: t.family,
		Vector: make([]float64, len(t.features)),
		Total:  len(t.features),
	}
	for i, name := range t.features {
		if row == nil {
			break
		}
		if v, ok := row.Values[name]; ok {
			a.Vector[i] = float64(v)
			a.Matched++
		}
	}
	a.Coverage = float64(a.Matched) / float64(a.Total)
	return a
}

// RoundedCoverage 报告中使用的覆盖率（4 位小数）
func (a Alignment) RoundedCoverage() float64 {
	return math.Round(a.Coverage*1e4) / 1e4
}

// IsSNPFeature 从模板中挑选 SNP 词表用的过滤规则：以 NC_ 开头且包含 ">"
//
// 只用于构建变异检测结果的词表（SNPVocabulary）。证据条目的类型标注使用
// attribution.FeatureType 的包含规则（名字中任意位置出现 NC_ 和 ">"），两者不可互换。
func IsSNPFeature(name string) bool {
	return strings.HasPrefix(name, "NC_") && strings.Contains(name, ">")
}

// IsKmerFeature 从模板中挑选 k-mer 词表用的过滤规则：恰好 10 个大写字母
func IsKmerFeature(name string) bool {
	if len(name) != features.KmerSize {
		return false
	}
	for _, c := range name {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
