package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svcallback"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// CallbackHandler 回调处理（svcallback.CallbackService 实现）
type CallbackHandler interface {
	HandleCallback(ctx context.Context, cb *model.PredictCallback) error
}

// CallbackConsumer 回调消费者
// 职责：
// 1. 从 lmstfy 队列消费回调消息
// 2. 解析消息并调用 CallbackService 处理
// 3. 确认消息（ACK）
type CallbackConsumer struct {
	source   framework.MessageSource
	handler  CallbackHandler
	queue    string
	timeout  time.Duration
	ttr      time.Duration
	interval time.Duration
	logger   logger.Logger
}

// Config 消费者配置
type Config struct {
	QueueName    string        // 队列名称
	Timeout      time.Duration // 拉取消息超时
	TTR          time.Duration // Time-To-Run
	PollInterval time.Duration // 出错后的等待间隔
}

// NewCallbackConsumer 创建回调消费者实例
func NewCallbackConsumer(source framework.MessageSource, handler CallbackHandler, cfg *Config, log logger.Logger) *CallbackConsumer {
	return &CallbackConsumer{
		source:   source,
		handler:  handler,
		queue:    cfg.QueueName,
		timeout:  cfg.Timeout,
		ttr:      cfg.TTR,
		interval: cfg.PollInterval,
		logger:   log,
	}
}

// Start 启动消费循环，ctx 取消后返回
func (c *CallbackConsumer) Start(ctx context.Context) error {
	c.logger.Infof(ctx, "[CallbackConsumer] started: queue=%s, timeout=%s, ttr=%s", c.queue, c.timeout, c.ttr)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infof(context.Background(), "[CallbackConsumer] stopped")
			return ctx.Err()
		default:
			if err := c.consumeOne(ctx); err != nil {
				c.logger.Errorf(ctx, "[CallbackConsumer] consume failed: %v", err)
				select {
				case <-ctx.Done():
				case <-time.After(c.interval):
				}
			}
		}
	}
}

// consumeOne 消费一条消息
func (c *CallbackConsumer) consumeOne(ctx context.Context) error {
	// 1. 从队列拉取消息
	msg, err := c.source.Consume(c.queue, c.timeout, c.ttr)
	if err != nil {
		return fmt.Errorf("consume message failed: %w", err)
	}
	if msg == nil {
		return nil
	}

	// 2. 解析失败直接 ACK，避免毒消息反复投递
	cb, err := svcallback.ParseCallback(msg.Data)
	if err != nil {
		c.logger.Errorf(ctx, "[CallbackConsumer] parse message failed: msg_id=%s, error=%v", msg.ID, err)
		if ackErr := c.source.Ack(c.queue, msg.ID); ackErr != nil {
			return ackErr
		}
		return nil
	}

	// 3. 处理回调：可重试错误不 ACK，交给 TTR 重新投递
	if err := c.handler.HandleCallback(ctx, cb); err != nil {
		if errorutil.Wrap(err).Retryable {
			return fmt.Errorf("handle callback %s failed, will retry: %w", cb.JobID, err)
		}
		c.logger.Errorf(ctx, "[CallbackConsumer] callback dropped: job_id=%s, error=%v", cb.JobID, err)
	}

	// 4. 确认消息
	if err := c.source.Ack(c.queue, msg.ID); err != nil {
		return fmt.Errorf("ack message failed: %w", err)
	}
	return nil
}
