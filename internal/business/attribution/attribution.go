// Package attribution 对胜出模型的单样本预测做特征归因并排序。
package attribution

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// DefaultTopN 默认保留的证据条数
const DefaultTopN = 5

// 特征生物学类型
const (
	TypeGene = "Gene"
	TypeSNP  = "SNP"
	TypeKmer = "K-mer"
)

// 影响方向
const (
	PromotesResistance     = "promotes_resistance"
	PromotesSusceptibility = "promotes_susceptibility"
)

// Evidence 单个特征的贡献
type Evidence struct {
	Feature string
	Type    string
	Impact  float64
	Effect  string
}

// FeatureType 按特征名判断类型（优先级：SNP > K-mer > Gene）
func FeatureType(name string) string {
	if strings.Contains(name, ">") && strings.Contains(name, "NC_") {
		return TypeSNP
	}
	if utf8.RuneCountInString(name) == 10 && isAlpha(name) {
		return TypeKmer
	}
	return TypeGene
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Explain 计算胜出模型的归因并返回前 topN 条证据
func Explain(model classifier.Classifier, tpl *templates.Template, vector []float64, topN int) ([]Evidence, error) {
	a, err := classifier.Explain(model, vector)
	if err != nil {
		if errorutil.KindOf(err) == errorutil.KindAttributionUnavailable {
			return nil, err
		}
		return nil, errorutil.AttributionUnavailable(err, "explain %s model", model.Family())
	}
	names := tpl.Names()
	if len(a.Contributions) != len(names) {
		return nil, errorutil.AttributionUnavailable(nil, "attribution has %d values, template %q has %d features",
			len(a.Contributions), tpl.Family(), len(names))
	}
	return Rank(names, a.Contributions, topN), nil
}

// Rank 按贡献绝对值降序排序，取前 topN 条（绝对值相同时保持模板顺序）
func Rank(names []string, contributions []float64, topN int) []Evidence {
	if topN <= 0 {
		topN = DefaultTopN
	}
	idx := make([]int, len(contributions))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(contributions[idx[a]]) > math.Abs(contributions[idx[b]])
	})
	if len(idx) > topN {
		idx = idx[:topN]
	}

	out := make([]Evidence, 0, len(idx))
	for _, i := range idx {
		c := contributions[i]
		effect := PromotesSusceptibility
		if c > 0 {
			effect = PromotesResistance
		}
		out = append(out, Evidence{
			Feature: names[i],
			Type:    FeatureType(names[i]),
			Impact:  c,
			Effect:  effect,
		})
	}
	return out
}
