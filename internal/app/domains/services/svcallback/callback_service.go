package svcallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// ResultNotifier 结果通知（mdprediction.PredictionModule 实现）
type ResultNotifier interface {
	NotifyResult(ctx context.Context, cb *model.PredictCallback) error
}

// CallbackService 回调处理服务
// 职责：
// 1. 处理 worker 发送的预测回调
// 2. 更新 DB 预测状态和报告
// 3. 发送 Redis PubSub 通知（Smart Wait）
type CallbackService struct {
	repo     rpprediction.PredictionRepository
	notifier ResultNotifier
	logger   logger.Logger
}

// NewCallbackService 创建回调服务实例
func NewCallbackService(repo rpprediction.PredictionRepository, notifier ResultNotifier, log logger.Logger) *CallbackService {
	return &CallbackService{
		repo:     repo,
		notifier: notifier,
		logger:   log,
	}
}

// HandleCallback 处理预测回调
// 返回可重试错误表示需要重新投递
func (s *CallbackService) HandleCallback(ctx context.Context, cb *model.PredictCallback) error {
	ctx = context.WithValue(ctx, "job_id", cb.JobID)
	ctx = context.WithValue(ctx, "trace_id", cb.RequestID)
	s.logger.Infof(ctx, "[CallbackService] processing callback: status=%s", cb.Status)

	// 1. 更新 DB
	p, err := s.repo.GetByID(ctx, cb.JobID)
	if err != nil {
		if errors.Is(err, rpprediction.ErrNotFound) {
			return errorutil.NonRetriableWithDetails("prediction not found", cb.JobID)
		}
		return errorutil.RetriableWithDetails("load prediction failed", err.Error())
	}

	if err := p.ApplyCallback(cb); err != nil {
		return errorutil.NonRetriableWithDetails("apply callback failed", err.Error())
	}
	if err := s.repo.SaveResult(ctx, p); err != nil {
		s.logger.Errorf(ctx, "[CallbackService] save result failed: %v", err)
		return errorutil.RetriableWithDetails("save prediction result failed", err.Error())
	}

	// 2. 通知失败不影响整体流程（DB 已更新成功）
	if err := s.notifier.NotifyResult(ctx, cb); err != nil {
		s.logger.Warnf(ctx, "[CallbackService] publish notification failed: %v", err)
	}

	s.logger.Infof(ctx, "[CallbackService] callback processed: prediction_status=%s", p.Status)
	return nil
}

// ParseCallback 解析并校验回调消息
func ParseCallback(data []byte) (*model.PredictCallback, error) {
	var cb model.PredictCallback
	if err := json.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("unmarshal callback failed: %w", err)
	}
	if cb.JobID == "" {
		return nil, fmt.Errorf("job_id is required")
	}
	if cb.Status == "" {
		return nil, fmt.Errorf("status is required")
	}
	return &cb, nil
}
