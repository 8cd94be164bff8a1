package rpprediction

import (
	"context"
	"errors"

	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

// ErrNotFound 预测记录不存在
var ErrNotFound = errors.New("prediction not found")

// PredictionRepository 预测仓储接口
type PredictionRepository interface {
	// Create 创建预测记录
	Create(ctx context.Context, p *etprediction.Prediction) error

	// GetByID 根据 ID 查询，不存在时返回 ErrNotFound
	GetByID(ctx context.Context, id string) (*etprediction.Prediction, error)

	// SaveResult 保存最终状态、报告和错误信息
	SaveResult(ctx context.Context, p *etprediction.Prediction) error

	// ListBySample 查询样本的历史预测（按创建时间倒序）
	ListBySample(ctx context.Context, sampleID string, page, limit int) ([]*etprediction.Prediction, int64, error)
}
