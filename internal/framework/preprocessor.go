package framework

import (
	"context"
	"fmt"

	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// PreProcessor 函数链处理器
type PreProcessor struct {
	steps []ProcessorFunc
}

// NewPreProcessor 创建函数链处理器
func NewPreProcessor(steps ...ProcessorFunc) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 按顺序执行；任一步骤出错或 Context 已取消时停止
func (p *PreProcessor) Run(ctx context.Context) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return errorutil.Cancelled(err, "processor[%d] not started", i)
		}
		if err := step(ctx); err != nil {
			return fmt.Errorf("processor[%d] failed: %w", i, err)
		}
	}
	return nil
}
