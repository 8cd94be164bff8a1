// Package report 把各抗生素结果与样本质量指标组装成最终报告。
package report

import (
	"math"
	"time"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/attribution"
	"github.com/reeta-042/salmonella-amr-api/internal/business/consensus"
	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// Outcome 单个抗生素的处理结果
type Outcome struct {
	Antibiotic     string
	Consensus      *consensus.Result
	Evidence       []attribution.Evidence
	AttributionErr error // 归因降级原因
	Err            error // 抗生素级失败（分类器不可用、取消）
}

// Input 报告组装输入
type Input struct {
	JobID           string
	SampleID        string
	SubmittedAt     time.Time
	CompletedAt     time.Time
	GenomeSizeBytes int64
	Metrics         features.QualityMetrics
	Alignments      []templates.Alignment
	Outcomes        []Outcome
	Metadata        model.ModelMetadata
}

// Assemble 结构化组装，不含业务判断
// 概率与贡献保留 4 位小数，基因组大小（MB）保留 2 位小数
func Assemble(in Input) *model.Report {
	r := &model.Report{
		JobID:    in.JobID,
		SampleID: in.SampleID,
		Status:   model.ReportStatusCompleted,
		Timestamps: model.Timestamps{
			SubmittedAt:           in.SubmittedAt.UTC().Format(time.RFC3339),
			CompletedAt:           in.CompletedAt.UTC().Format(time.RFC3339),
			ProcessingTimeSeconds: int64(in.CompletedAt.Sub(in.SubmittedAt).Seconds()),
		},
		QualityMetrics: model.QualityMetrics{
			GenomeSizeMB:     Round(float64(in.GenomeSizeBytes)/(1024*1024), 2),
			GenesDetected:    in.Metrics.GenesDetected,
			KmersMatched:     in.Metrics.KmersMatched,
			SNPsDetected:     in.Metrics.SNPsDetected,
			TemplateCoverage: make([]model.TemplateCoverage, 0, len(in.Alignments)),
		},
		Predictions:   make([]model.AntibioticResult, 0, len(in.Outcomes)),
		ModelMetadata: in.Metadata,
	}

	for _, a := range in.Alignments {
		r.QualityMetrics.TemplateCoverage = append(r.QualityMetrics.TemplateCoverage, model.TemplateCoverage{
			Family:   a.Family,
			Matched:  a.Matched,
			Total:    a.Total,
			Coverage: a.RoundedCoverage(),
		})
	}

	for _, o := range in.Outcomes {
		res := antibioticResult(o)
		if res.Error != nil {
			r.Status = model.ReportStatusPartial
		}
		r.Predictions = append(r.Predictions, res)
	}
	return r
}

func antibioticResult(o Outcome) model.AntibioticResult {
	res := model.AntibioticResult{Antibiotic: o.Antibiotic, Evidence: []model.Evidence{}}
	if o.Err != nil || o.Consensus == nil {
		kind := errorutil.KindOf(o.Err)
		if kind == "" {
			kind = errorutil.KindClassifierUnavailable
		}
		msg := "no result"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		res.Error = &model.ResultError{Kind: string(kind), Message: msg}
		return res
	}

	c := o.Consensus
	res.Phenotype = string(c.Phenotype)
	res.ProbabilityScore = Round(c.Probability, 4)
	res.ConfidenceCategory = string(c.Confidence)
	res.ActionRequired = string(c.Action)
	res.Consensus = c.Narrative
	res.ModelBreakdown = &model.ModelBreakdown{
		FullModel:    modelCall(c.Full),
		PartialModel: modelCall(c.Partial),
	}
	for _, e := range o.Evidence {
		res.Evidence = append(res.Evidence, model.Evidence{
			Feature:     e.Feature,
			Type:        e.Type,
			ImpactScore: Round(e.Impact, 4),
			Effect:      e.Effect,
		})
	}
	if o.AttributionErr != nil {
		res.AttributionError = o.AttributionErr.Error()
	}
	return res
}

func modelCall(m consensus.ModelOutcome) model.ModelCall {
	return model.ModelCall{
		Family:      m.Family,
		Prediction:  string(m.Call),
		Probability: Round(m.PResistant, 4),
	}
}

// Round 四舍五入到 places 位小数
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
