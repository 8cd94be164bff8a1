package classifier

import (
	"fmt"
	"math"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Logistic 逻辑回归：P(Resistant) = sigmoid(Intercept + w·x)
type Logistic struct {
	family    string
	intercept float64
	weights   []float64
	baseline  []float64
}

// NewLogistic 创建逻辑回归模型；baseline 为空时取全 0
func NewLogistic(family string, intercept float64, weights, baseline []float64) (*Logistic, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("logistic: no weights")
	}
	if baseline == nil {
		baseline = make([]float64, len(weights))
	}
	if len(baseline) != len(weights) {
		return nil, fmt.Errorf("logistic: baseline has %d values, want %d", len(baseline), len(weights))
	}
	return &Logistic{family: family, intercept: intercept, weights: weights, baseline: baseline}, nil
}

// Family 绑定的模板族
func (l *Logistic) Family() string { return l.family }

// NFeatures 输入维度
func (l *Logistic) NFeatures() int { return len(l.weights) }

// PredictProba sigmoid(b + w·x)
func (l *Logistic) PredictProba(x []float64) ([2]float64, error) {
	if err := checkShape(l.family, len(l.weights), x); err != nil {
		return [2]float64{}, err
	}
	z := l.intercept
	for i, w := range l.weights {
		z += w * x[i]
	}
	p := 1 / (1 + math.Exp(-z))
	return [2]float64{1 - p, p}, nil
}

// Attribute 对数几率空间的线性归因：w_i * (x_i - baseline_i)
func (l *Logistic) Attribute(x []float64) (Attribution, error) {
	if err := checkShape(l.family, len(l.weights), x); err != nil {
		return Attribution{}, errorutil.AttributionUnavailable(err, "logistic attribution")
	}
	out := Attribution{Bias: l.intercept, Contributions: make([]float64, len(l.weights))}
	for i, w := range l.weights {
		out.Bias += w * l.baseline[i]
		out.Contributions[i] = w * (x[i] - l.baseline[i])
	}
	return out, nil
}
