package services

import (
	"context"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/classifier"
	"github.com/reeta-042/salmonella-amr-api/internal/business/templates"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// BuildCompositeHandler 启动时加载模板与模型，构建只读的预测引擎
// 模板不可用是进程级致命错误；单个模型加载失败只记录日志，请求时该抗生素标记为不可用
func BuildCompositeHandler(cfg config.EngineConfig, log logger.Logger) (*CompositeHandler, error) {
	ctx := context.Background()

	set, err := templates.LoadSet(cfg.TemplateDir, cfg.Templates)
	if err != nil {
		return nil, err
	}
	for _, f := range set.Families() {
		t, _ := set.Get(f)
		log.Infof(ctx, "[Bootstrap] Template %s loaded: %d features", f, t.Len())
	}

	registry := classifier.Load(cfg, set)
	for name, err := range registry.Failures() {
		log.Errorf(ctx, "[Bootstrap] Models for %s unavailable: %v", name, err)
	}

	antibiotics := make([]string, 0, len(cfg.Antibiotics))
	for _, a := range cfg.Antibiotics {
		antibiotics = append(antibiotics, a.Name)
	}

	return NewCompositeHandler(set, registry, EngineOptions{
		Antibiotics:       antibiotics,
		TopN:              cfg.TopN,
		Parallelism:       cfg.Parallelism,
		StrictAttribution: cfg.StrictAttribution,
		Metadata: model.ModelMetadata{
			PipelineVersion: cfg.Metadata.PipelineVersion,
			TrainedDate:     cfg.Metadata.TrainedDate,
			TrainingSamples: cfg.Metadata.TrainingSamples,
			CardVersion:     cfg.Metadata.CardVersion,
			ReferenceGenome: cfg.Metadata.ReferenceGenome,
		},
	}, log), nil
}
