package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/attribution"
	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/internal/business/consensus"
	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/internal/business/report"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// PredictInput 单样本预测输入（三张表已在内存中）
type PredictInput struct {
	JobID           string
	SampleID        string
	SubmittedAt     time.Time
	GenomeSizeBytes int64
	Gene            *features.Table
	Kmer            *features.Table
	SNP             *features.Table
}

// EngineOptions 引擎策略
type EngineOptions struct {
	Antibiotics       []string // 报告中的抗生素顺序
	TopN              int
	Parallelism       int
	StrictAttribution bool // 归因失败时终止整个请求
	Metadata          model.ModelMetadata
}

// CompositeHandler 复合预测处理器：对齐 → 各抗生素共识与归因 → 组装报告
// 模板集合与模型注册表只读，可被并发请求共享
type CompositeHandler struct {
	templates *templates.Set
	registry  *classifier.Registry
	opts      EngineOptions
	logger    logger.Logger
	now       func() time.Time
}

// NewCompositeHandler 创建复合预测处理器
func NewCompositeHandler(set *templates.Set, registry *classifier.Registry, opts EngineOptions, log logger.Logger) *CompositeHandler {
	if opts.TopN <= 0 {
		opts.TopN = attribution.DefaultTopN
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if len(opts.Antibiotics) == 0 {
		opts.Antibiotics = registry.Antibiotics()
	}
	return &CompositeHandler{
		templates: set,
		registry:  registry,
		opts:      opts,
		logger:    log,
		now:       time.Now,
	}
}

// Predict 执行完整预测流程
//
// 返回值：
//   - 报告完整或部分成功：report, nil
//   - 调用方取消：部分报告（未开始的抗生素标记为 CANCELLED）, ErrCancelled
//   - 请求级失败（表结构非法、严格模式下归因失败）：nil, error
func (h *CompositeHandler) Predict(ctx context.Context, in *PredictInput) (*model.Report, error) {
	submitted := in.SubmittedAt
	if submitted.IsZero() {
		submitted = h.now()
	}

	// 1. 合并特征表
	row, err := features.Merge(in.Gene, in.Kmer, in.SNP)
	if err != nil {
		return nil, err
	}
	sampleID := in.SampleID
	if sampleID == "" {
		sampleID = row.SampleID
	}

	// 2. 对齐到全部模板
	alignments := h.templates.AlignAll(row)
	byFamily := make(map[string]templates.Alignment, len(alignments))
	for _, a := range alignments {
		byFamily[a.Family] = a
		h.logger.Infof(ctx, "[CompositeHandler] Aligned %s: matched %d/%d (%.1f%%)", a.Family, a.Matched, a.Total, a.Coverage*100)
	}

	// 3. 各抗生素并行预测，互相隔离
	outcomes, err := h.predictAll(ctx, byFamily)
	if err != nil {
		return nil, err
	}

	// 4. 组装报告
	rep := report.Assemble(report.Input{
		JobID:           in.JobID,
		SampleID:        sampleID,
		SubmittedAt:     submitted,
		CompletedAt:     h.now(),
		GenomeSizeBytes: in.GenomeSizeBytes,
		Metrics:         features.Metrics(in.Gene, in.Kmer, in.SNP),
		Alignments:      alignments,
		Outcomes:        outcomes,
		Metadata:        h.opts.Metadata,
	})

	for _, o := range outcomes {
		if errorutil.KindOf(o.Err) == errorutil.KindCancelled {
			return rep, errorutil.Cancelled(ctx.Err(), "prediction for %s interrupted", sampleID)
		}
	}
	return rep, nil
}

// predictAll 取消检查发生在每个抗生素开始之前；进行中的抗生素不会被中断
func (h *CompositeHandler) predictAll(ctx context.Context, byFamily map[string]templates.Alignment) ([]report.Outcome, error) {
	outcomes := make([]report.Outcome, len(h.opts.Antibiotics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Parallelism)

	for i, name := range h.opts.Antibiotics {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = report.Outcome{Antibiotic: name, Err: errorutil.Cancelled(err, "%s not started", name)}
				return nil
			}
			actx := context.WithValue(gctx, "antibiotic", name)
			o, err := h.predictOne(actx, name, byFamily)
			outcomes[i] = o
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// predictOne 单个抗生素：共识 → 归因
// 只有严格模式下的归因失败会作为 error 返回，其余失败记录在 Outcome 中
func (h *CompositeHandler) predictOne(ctx context.Context, name string, byFamily map[string]templates.Alignment) (report.Outcome, error) {
	out := report.Outcome{Antibiotic: name}

	pair, err := h.registry.Lookup(name)
	if err != nil {
		h.logger.Errorf(ctx, "[CompositeHandler] %s: %v", name, err)
		out.Err = err
		return out, nil
	}

	fullA, okFull := byFamily[pair.FullFamily]
	partialA, okPartial := byFamily[pair.PartialFamily]
	if !okFull || !okPartial {
		out.Err = errorutil.ClassifierUnavailable(nil, "%s: no aligned vector for %s/%s", name, pair.FullFamily, pair.PartialFamily)
		h.logger.Errorf(ctx, "[CompositeHandler] %v", out.Err)
		return out, nil
	}

	res, err := consensus.Decide(name, pair.Full, pair.Partial, fullA.Vector, partialA.Vector)
	if err != nil {
		h.logger.Errorf(ctx, "[CompositeHandler] %s: %v", name, err)
		out.Err = err
		return out, nil
	}
	out.Consensus = res

	winning := pair.FullFamily
	if res.Winner == consensus.SidePartial {
		winning = pair.PartialFamily
	}
	tpl, _ := h.templates.Get(winning)
	evidence, err := attribution.Explain(res.WinningModel, tpl, res.WinningVector, h.opts.TopN)
	if err != nil {
		if h.opts.StrictAttribution {
			return out, err
		}
		h.logger.Warnf(ctx, "[CompositeHandler] %s: attribution degraded: %v", name, err)
		out.AttributionErr = err
	}
	out.Evidence = evidence

	h.logOutcome(ctx, res, evidence)
	return out, nil
}

func (h *CompositeHandler) logOutcome(ctx context.Context, res *consensus.Result, evidence []attribution.Evidence) {
	h.logger.Infof(ctx, "[CompositeHandler] %s: full=%s (%.1f%%) partial=%s (%.1f%%) -> %s %.4f %s %s",
		res.Antibiotic,
		res.Full.Call, res.Full.PResistant*100,
		res.Partial.Call, res.Partial.PResistant*100,
		res.Phenotype, res.Probability, res.Confidence, res.Action)
	for _, e := range evidence {
		h.logger.Debugf(ctx, "[CompositeHandler]   %s (%s): %.4f (%s)", e.Feature, e.Type, e.Impact, e.Effect)
	}
}

// Antibiotics 报告中的抗生素顺序
func (h *CompositeHandler) Antibiotics() []string {
	return append([]string(nil), h.opts.Antibiotics...)
}

// Templates 已加载的特征模板
func (h *CompositeHandler) Templates() *templates.Set {
	return h.templates
}
