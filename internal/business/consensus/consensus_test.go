package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// fixed 固定输出的测试模型
type fixed struct {
	family string
	n      int
	pR     float64
}

func (f fixed) Family() string { return f.family }
func (f fixed) NFeatures() int { return f.n }
func (f fixed) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != f.n {
		return [2]float64{}, errorutil.ClassifierUnavailable(nil, "shape")
	}
	return [2]float64{1 - f.pR, f.pR}, nil
}

func outcome(pR float64) ModelOutcome { return ModelOutcome{PResistant: pR} }

func TestDisagreementEscalates(t *testing.T) {
	r := Reconcile("pefoxacin", outcome(0.90), outcome(0.30))

	assert.False(t, r.Agree)
	assert.Equal(t, Resistant, r.Phenotype)
	assert.InDelta(t, 0.90, r.Probability, 1e-12)
	assert.Equal(t, Low, r.Confidence)
	assert.Equal(t, ConfirmatoryASTRequired, r.Action)
	assert.Equal(t, SideFull, r.Winner)
	assert.Equal(t, "Models disagree: Full=Resistant (90.0%), Partial=Susceptible (30.0%)", r.Narrative)
}

func TestDisagreementAlwaysLow(t *testing.T) {
	pairs := [][2]float64{{0.99, 0.01}, {0.5, 0.4999}, {0.2, 0.97}, {0.0, 1.0}}
	for _, p := range pairs {
		r := Reconcile("x", outcome(p[0]), outcome(p[1]))
		assert.False(t, r.Agree, p)
		assert.Equal(t, Low, r.Confidence, p)
		assert.Equal(t, ConfirmatoryASTRequired, r.Action, p)
		assert.Equal(t, Resistant, r.Phenotype, p)
	}

	r := Reconcile("x", outcome(0.2), outcome(0.97))
	assert.Equal(t, SidePartial, r.Winner)
}

func TestAgreementHighConfidence(t *testing.T) {
	r := Reconcile("trimethoprim", outcome(0.92), outcome(0.88))

	assert.True(t, r.Agree)
	assert.Equal(t, Resistant, r.Phenotype)
	assert.InDelta(t, 0.92, r.Probability, 1e-12)
	assert.Equal(t, High, r.Confidence)
	assert.Equal(t, ReportFinal, r.Action)
	assert.Equal(t, SideFull, r.Winner)
	assert.Equal(t, "Both models agree (92.0% confident)", r.Narrative)
}

func TestAgreementSusceptibleUsesAgreedClass(t *testing.T) {
	// 胜出模型是 P(Resistant) 较高者，概率按一致类别（Susceptible）表达
	r := Reconcile("sulfamethoxazole", outcome(0.05), outcome(0.20))

	assert.Equal(t, Susceptible, r.Phenotype)
	assert.Equal(t, SidePartial, r.Winner)
	assert.InDelta(t, 0.80, r.Probability, 1e-12)
	assert.Equal(t, Medium, r.Confidence)
	assert.Equal(t, ConsiderConfirmation, r.Action)
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		p    float64
		conf Confidence
		act  Action
	}{
		{1.0, High, ReportFinal},
		{0.85, High, ReportFinal},
		{0.8499, Medium, ConsiderConfirmation},
		{0.65, Medium, ConsiderConfirmation},
		{0.6499, Low, ConfirmatoryASTRequired},
		{0.5, Low, ConfirmatoryASTRequired},
	}
	for _, tc := range cases {
		conf, act := Tier(tc.p)
		assert.Equal(t, tc.conf, conf, tc.p)
		assert.Equal(t, tc.act, act, tc.p)
	}
}

func TestTierIsMonotonic(t *testing.T) {
	rank := map[Confidence]int{Low: 0, Medium: 1, High: 2}
	prev := -1
	for i := 500; i <= 1000; i++ {
		c, _ := Tier(float64(i) / 1000)
		require.GreaterOrEqual(t, rank[c], prev)
		prev = rank[c]
	}
}

func TestExactTiePrefersFullModel(t *testing.T) {
	r := Reconcile("x", ModelOutcome{Family: "full", PResistant: 0.7}, ModelOutcome{Family: "snps_kmers", PResistant: 0.7})
	assert.Equal(t, SideFull, r.Winner)
	assert.Equal(t, Medium, r.Confidence)
}

func TestDecidePicksWinningModelAndVector(t *testing.T) {
	full := fixed{family: "full", n: 3, pR: 0.3}
	partial := fixed{family: "snps_kmers", n: 2, pR: 0.9}
	fv, pv := []float64{0, 1, 0}, []float64{1, 1}

	r, err := Decide("pefoxacin", full, partial, fv, pv)
	require.NoError(t, err)
	assert.Equal(t, SidePartial, r.Winner)
	assert.Equal(t, partial, r.WinningModel)
	assert.Equal(t, pv, r.WinningVector)
	assert.Equal(t, "full", r.Full.Family)
	assert.Equal(t, Susceptible, r.Full.Call)
}

func TestDecideShapeMismatch(t *testing.T) {
	full := fixed{family: "full", n: 3, pR: 0.3}
	partial := fixed{family: "snps_kmers", n: 2, pR: 0.9}

	_, err := Decide("pefoxacin", full, partial, []float64{0, 1}, []float64{1, 1})
	assert.ErrorIs(t, err, errorutil.ErrClassifierUnavailable)

	_, err = Decide("pefoxacin", full, nil, []float64{0, 1, 0}, nil)
	assert.ErrorIs(t, err, errorutil.ErrClassifierUnavailable)
}
