// Package consensus 合并同一抗生素的全特征模型与部分特征模型输出，给出表型、置信度和建议动作。
package consensus

import (
	"fmt"

	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Phenotype 表型
type Phenotype string

const (
	Resistant   Phenotype = "Resistant"
	Susceptible Phenotype = "Susceptible"
)

// Confidence 置信度分级
type Confidence string

const (
	High   Confidence = "High"
	Medium Confidence = "Medium"
	Low    Confidence = "Low"
)

// Action 建议动作
type Action string

const (
	ReportFinal             Action = "REPORT_FINAL"
	ConsiderConfirmation    Action = "CONSIDER_CONFIRMATION"
	ConfirmatoryASTRequired Action = "CONFIRMATORY_AST_REQUIRED"
)

// 判定阈值
const (
	ResistantThreshold = 0.5
	HighThreshold      = 0.85
	MediumThreshold    = 0.65
)

// Side 胜出模型
type Side string

const (
	SideFull    Side = "full"
	SidePartial Side = "partial"
)

// ModelOutcome 单个模型的判定
type ModelOutcome struct {
	Family     string
	PResistant float64
	Call       Phenotype
}

// Result 单个抗生素的共识结果（构建后不再修改）
type Result struct {
	Antibiotic  string
	Phenotype   Phenotype
	Probability float64
	Confidence  Confidence
	Action      Action
	Agree       bool
	Narrative   string
	Full        ModelOutcome
	Partial     ModelOutcome
	Winner      Side

	// 归因使用的模型与输入
	WinningModel  classifier.Classifier
	WinningVector []float64
}

// Call 二分类判定：P(Resistant) >= 0.5 为 Resistant
func Call(pResistant float64) Phenotype {
	if pResistant >= ResistantThreshold {
		return Resistant
	}
	return Susceptible
}

// Tier 一致时的置信度分级（自上而下判断，下界包含）
func Tier(p float64) (Confidence, Action) {
	switch {
	case p >= HighThreshold:
		return High, ReportFinal
	case p >= MediumThreshold:
		return Medium, ConsiderConfirmation
	default:
		return Low, ConfirmatoryASTRequired
	}
}

// Decide 运行两个模型并合并结果
// 任一模型无法调用时返回 ClassifierUnavailable，只影响当前抗生素
func Decide(antibiotic string, full, partial classifier.Classifier, fullVec, partialVec []float64) (*Result, error) {
	if full == nil || partial == nil {
		return nil, errorutil.ClassifierUnavailable(nil, "%s: model pair incomplete", antibiotic)
	}
	pFull, err := full.PredictProba(fullVec)
	if err != nil {
		return nil, wrapUnavailable(err, "%s full model", antibiotic)
	}
	pPartial, err := partial.PredictProba(partialVec)
	if err != nil {
		return nil, wrapUnavailable(err, "%s partial model", antibiotic)
	}

	r := Reconcile(antibiotic,
		ModelOutcome{Family: full.Family(), PResistant: pFull[classifier.ClassResistant]},
		ModelOutcome{Family: partial.Family(), PResistant: pPartial[classifier.ClassResistant]},
	)
	if r.Winner == SideFull {
		r.WinningModel, r.WinningVector = full, fullVec
	} else {
		r.WinningModel, r.WinningVector = partial, partialVec
	}
	return &r, nil
}

// Reconcile 共识策略（纯函数）
//
// 1. 胜出模型为 P(Resistant) 较高者；完全相等时取全特征模型
// 2. 判定不一致：表型取胜出模型的判定，置信度固定 Low，动作固定 CONFIRMATORY_AST_REQUIRED
// 3. 判定一致：按胜出模型对一致类别的概率分级
func Reconcile(antibiotic string, full, partial ModelOutcome) Result {
	full.Call = Call(full.PResistant)
	partial.Call = Call(partial.PResistant)

	r := Result{Antibiotic: antibiotic, Full: full, Partial: partial, Winner: SideFull}
	win := full
	if partial.PResistant > full.PResistant {
		r.Winner, win = SidePartial, partial
	}

	r.Phenotype = win.Call
	r.Probability = classProbability(win.PResistant, win.Call)
	r.Agree = full.Call == partial.Call

	if !r.Agree {
		r.Confidence, r.Action = Low, ConfirmatoryASTRequired
		r.Narrative = fmt.Sprintf("Models disagree: Full=%s (%s), Partial=%s (%s)",
			full.Call, percent(full.PResistant), partial.Call, percent(partial.PResistant))
		return r
	}

	r.Confidence, r.Action = Tier(r.Probability)
	r.Narrative = fmt.Sprintf("Both models agree (%s confident)", percent(r.Probability))
	return r
}

func classProbability(pResistant float64, call Phenotype) float64 {
	if call == Resistant {
		return pResistant
	}
	return 1 - pResistant
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func wrapUnavailable(err error, format string, args ...interface{}) error {
	if errorutil.KindOf(err) == errorutil.KindClassifierUnavailable {
		return err
	}
	return errorutil.ClassifierUnavailable(err, format, args...)
}
