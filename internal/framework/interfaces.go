package framework

import (
	"context"
	"time"
)

// MessageSource 任务队列（lmstfy 或测试桩）
type MessageSource interface {
	// Consume 阻塞拉取，超时未拉到返回 (nil, nil)
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)
	// Ack 删除消息；不 Ack 的消息在 TTR 到期后重新投递
	Ack(queue string, jobID string) error
}

// ProcessorFunc 处理链中的一步
type ProcessorFunc func(ctx context.Context) error

// BusinessHandler 按 action_type 分派的业务处理器
type BusinessHandler interface {
	Handle(ctx context.Context) ([]byte, error)
}

// Resulter 保存处理链的最终输出
type Resulter interface {
	Set(ctx context.Context, data interface{}) error
	Get(ctx context.Context) interface{}
}
