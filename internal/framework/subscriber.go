package framework

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// Subscriber 订阅者：从消息队列拉取预测任务，转发给 Processor
type Subscriber struct {
	cfg        *SubscriberConfig
	source     MessageSource // 消息源（lmstfy 适配器）
	logger     logger.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	received *atomic.Int64 // 已转发的消息数
	failures *atomic.Int64 // 拉取失败次数
	dropped  *atomic.Int64 // 停机时丢弃的消息数（TTR 到期后重新投递）
}

// SubscriberStats 运行统计
type SubscriberStats struct {
	Received int64
	Failures int64
	Dropped  int64
}

// NewSubscriber 创建订阅者
func NewSubscriber(cfg *SubscriberConfig, source MessageSource, log logger.Logger) *Subscriber {
	return &Subscriber{
		cfg:      cfg.withDefaults(),
		source:   source,
		logger:   log,
		received: atomic.NewInt64(0),
		failures: atomic.NewInt64(0),
		dropped:  atomic.NewInt64(0),
	}
}

// Start 启动 Concurrency 个拉取协程
func (s *Subscriber) Start(parentCtx context.Context, inputChan chan<- *Message) error {
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel

	s.logger.Infof(ctx, "[Subscriber] Starting %d pullers for queue %s (timeout=%s, ttr=%s)",
		s.cfg.Concurrency, s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)

	for i := 0; i < s.cfg.Concurrency; i++ {
		s.wg.Add(1)
		go s.loop(context.WithValue(ctx, "worker_id", i), i, inputChan)
	}
	return nil
}

// Stop 停止拉取新消息
func (s *Subscriber) Stop() {
	s.logger.Infof(context.Background(), "[Subscriber] Stopping...")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Wait 等待所有拉取协程退出
func (s *Subscriber) Wait() {
	s.wg.Wait()
	st := s.Stats()
	s.logger.Infof(context.Background(), "[Subscriber] All pullers exited: received=%d, failures=%d, dropped=%d",
		st.Received, st.Failures, st.Dropped)
}

// Stats 当前统计
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received: s.received.Load(),
		Failures: s.failures.Load(),
		Dropped:  s.dropped.Load(),
	}
}

// loop 单个拉取协程
func (s *Subscriber) loop(ctx context.Context, id int, inputChan chan<- *Message) {
	defer s.wg.Done()
	s.logger.Debugf(ctx, "[Subscriber-%d] Started", id)

	for ctx.Err() == nil {
		// 1. 拉取（网络错误只退避，不退出）
		msg, err := s.source.Consume(s.cfg.QueueName, s.cfg.Timeout, s.cfg.TTR)
		if err != nil {
			s.failures.Inc()
			s.logger.Warnf(ctx, "[Subscriber-%d] Consume error: %v, retrying in %s", id, err, s.cfg.ErrorBackoff)
			sleep(ctx, s.cfg.ErrorBackoff)
			continue
		}
		if msg == nil {
			continue
		}

		// 2. 转发；停机时消息不 ACK，由队列在 TTR 后重新投递
		select {
		case inputChan <- msg:
			s.received.Inc()
			s.logger.Debugf(ctx, "[Subscriber-%d] Message forwarded: %s", id, msg.ID)
		case <-ctx.Done():
			s.dropped.Inc()
			s.logger.Warnf(ctx, "[Subscriber-%d] Dropping message due to shutdown: %s", id, msg.ID)
			return
		}

		// 3. 速率控制
		sleep(ctx, s.cfg.Rate)
	}
	s.logger.Infof(ctx, "[Subscriber-%d] Context cancelled, exiting", id)
}

// sleep 可被 ctx 打断的等待
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
