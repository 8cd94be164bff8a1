package mdprediction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

// 预测任务在队列中的 TTL（秒），0 表示不过期
const jobTTL uint32 = 0

// JobPublisher 任务发布（pkg/lmstfy.Client 实现）
type JobPublisher interface {
	PublishJob(queue string, data []byte, ttl, delay uint32) (string, error)
}

// Notifier 结果通知通道（pkg/infra/redis.PubSub 实现）
type Notifier interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Wait(ctx context.Context, channel string, timeout time.Duration) ([]byte, error)
}

// PredictionModule 预测模块
// 职责：
// 1. 组装 Lmstfy 和 Redis 客户端
// 2. 维护任务消息格式和结果频道命名规则
type PredictionModule struct {
	publisher JobPublisher
	notifier  Notifier
	queueName string
}

// NewPredictionModule 创建预测模块实例
func NewPredictionModule(publisher JobPublisher, notifier Notifier, queueName string) *PredictionModule {
	return &PredictionModule{
		publisher: publisher,
		notifier:  notifier,
		queueName: queueName,
	}
}

// ResultChannel 预测结果频道（业务约定：prediction:result:{id}）
func ResultChannel(predictionID string) string {
	return fmt.Sprintf("prediction:result:%s", predictionID)
}

// PublishPredictJob 发布预测任务到队列，返回队列分配的 Job ID
func (m *PredictionModule) PublishPredictJob(ctx context.Context, p *etprediction.Prediction) (string, error) {
	requestID := p.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	message := model.PredictJob{
		Payload: model.PredictPayload{
			Data: model.PredictData{
				RequestID:  requestID,
				OrgID:      "0",
				ActionType: model.ActionTypePredict,
				ID:         p.ID,
				Data:       *p.Request,
			},
		},
	}

	data, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal predict job failed: %w", err)
	}
	return m.publisher.PublishJob(m.queueName, data, jobTTL, 0)
}

// NotifyResult 发布回调结果，唤醒等待中的请求
func (m *PredictionModule) NotifyResult(ctx context.Context, cb *model.PredictCallback) error {
	payload, err := json.Marshal(cb)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}
	return m.notifier.Publish(ctx, ResultChannel(cb.JobID), payload)
}

// WaitForResult 等待预测结果（Smart Wait）
func (m *PredictionModule) WaitForResult(ctx context.Context, predictionID string, timeout time.Duration) (*model.PredictCallback, error) {
	payload, err := m.notifier.Wait(ctx, ResultChannel(predictionID), timeout)
	if err != nil {
		return nil, err
	}

	var cb model.PredictCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("unmarshal notification failed: %w", err)
	}
	return &cb, nil
}
