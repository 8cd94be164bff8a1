package framework

import "time"

// 未配置时使用的默认值
const (
	defaultConcurrency  = 1
	defaultPullTimeout  = 3 * time.Second
	defaultTTR          = 120 * time.Second
	defaultErrorBackoff = time.Second
)

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	QueueName    string        // 队列名称
	Concurrency  int           // 并发拉取数
	Timeout      time.Duration // 拉取超时
	TTR          time.Duration // Time-To-Run，需大于单个预测的处理超时
	Rate         time.Duration // 两次拉取之间的间隔，0 表示不限速
	ErrorBackoff time.Duration // 错误退避时间
}

// withDefaults 返回补全默认值后的副本
func (c *SubscriberConfig) withDefaults() *SubscriberConfig {
	out := *c
	if out.Concurrency <= 0 {
		out.Concurrency = defaultConcurrency
	}
	if out.Timeout <= 0 {
		out.Timeout = defaultPullTimeout
	}
	if out.TTR <= 0 {
		out.TTR = defaultTTR
	}
	if out.ErrorBackoff <= 0 {
		out.ErrorBackoff = defaultErrorBackoff
	}
	return &out
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Concurrency int           // 并发处理数
	BufferSize  int           // inputChan 缓冲区大小
	Timeout     time.Duration // 单个消息处理超时，0 表示不限制
}

// withDefaults 返回补全默认值后的副本
func (c *ProcessorConfig) withDefaults() *ProcessorConfig {
	out := *c
	if out.Concurrency <= 0 {
		out.Concurrency = defaultConcurrency
	}
	if out.BufferSize < 0 {
		out.BufferSize = 0
	}
	return &out
}
