// Package classifier 定义预训练耐药模型的能力接口及其实现。
//
// 模型只读、可在并发请求间共享：推理和归因都不修改模型状态。
package classifier

import (
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// 类别下标：概率对为 [P(Susceptible), P(Resistant)]
const (
	ClassSusceptible = 0
	ClassResistant   = 1
)

// Classifier 概率推理能力
type Classifier interface {
	// Family 绑定的模板族
	Family() string
	// NFeatures 输入维度
	NFeatures() int
	// PredictProba 返回 [P(Susceptible), P(Resistant)]
	PredictProba(x []float64) ([2]float64, error)
}

// Attributor 可选能力：单样本有符号特征贡献（朝向 Resistant 类）
type Attributor interface {
	Attribute(x []float64) (Attribution, error)
}

// Attribution 加性归因：Bias + sum(Contributions) 等于模型对 Resistant 的输出
type Attribution struct {
	Bias          float64
	Contributions []float64
}

// Explain 计算归因；模型未实现 Attributor 时返回 AttributionUnavailable
func Explain(c Classifier, x []float64) (Attribution, error) {
	a, ok := c.(Attributor)
	if !ok {
		return Attribution{}, errorutil.AttributionUnavailable(nil, "model for family %q does not support attribution", c.Family())
	}
	return a.Attribute(x)
}

func checkShape(family string, want int, x []float64) error {
	if len(x) != want {
		return errorutil.ClassifierUnavailable(nil, "model for family %q expects %d features, got %d", family, want, len(x))
	}
	return nil
}
