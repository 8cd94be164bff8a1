package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/reeta-042/salmonella-amr-api/internal/framework"
	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfyx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// Worker 一条预测队列的拉取 + 处理流水线
type Worker interface {
	Start() error
	Shutdown()
	GetName() string
	Stats() framework.SubscriberStats
}

// Spec 创建 Worker 所需的配置
type Spec struct {
	Name       string
	Subscriber framework.SubscriberConfig
	Processor  framework.ProcessorConfig
}

// WorkerInstance Subscriber → inputChan → Processor
type WorkerInstance struct {
	ctx        context.Context
	name       string
	subscriber *framework.Subscriber
	processor  *framework.Processor
	inputChan  chan *framework.Message
	started    chan struct{}
	stopOnce   sync.Once
	shutdownCh chan struct{}
	logger     logger.Logger
}

// NewWorkerInstance 创建 Worker 实例，proc 为注入的 GetProcess
func NewWorkerInstance(ctx context.Context, spec Spec, source framework.MessageSource, proc lmstfyx.Proc, log logger.Logger) (*WorkerInstance, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if spec.Subscriber.QueueName == "" {
		return nil, fmt.Errorf("worker %s: queue name is required", spec.Name)
	}
	if source == nil || proc == nil {
		return nil, fmt.Errorf("worker %s: source and proc are required", spec.Name)
	}

	// 缓冲区不超过处理并发数时，拉取会在 Processor 忙碌时自然阻塞
	buffer := spec.Processor.BufferSize
	if buffer < 0 {
		buffer = 0
	}

	return &WorkerInstance{
		ctx:        ctx,
		name:       spec.Name,
		subscriber: framework.NewSubscriber(&spec.Subscriber, source, log),
		processor:  framework.NewProcessor(&spec.Processor, proc, source, log),
		inputChan:  make(chan *framework.Message, buffer),
		started:    make(chan struct{}),
		shutdownCh: make(chan struct{}),
		logger:     log,
	}, nil
}

// Start 启动 Processor 和 Subscriber，阻塞直到 Shutdown 完成
func (w *WorkerInstance) Start() error {
	select {
	case <-w.shutdownCh:
		return nil
	default:
	}
	w.logger.Infof(w.ctx, "[Worker] %s starting", w.name)

	// 1. 先启动 Processor，保证拉到的消息有人处理
	if err := w.processor.Start(w.ctx, w.inputChan); err != nil {
		return fmt.Errorf("worker %s: start processor: %w", w.name, err)
	}

	// 2. 启动 Subscriber
	if err := w.subscriber.Start(w.ctx, w.inputChan); err != nil {
		w.processor.SignalShutdown()
		w.processor.Wait()
		return fmt.Errorf("worker %s: start subscriber: %w", w.name, err)
	}
	close(w.started)
	w.logger.Infof(w.ctx, "[Worker] %s started", w.name)

	<-w.shutdownCh
	return nil
}

// Shutdown 优雅退出，可重复调用
//  1. 停止拉取并等待 Subscriber 退出
//  2. Processor 处理完 inputChan 中剩余的消息
func (w *WorkerInstance) Shutdown() {
	w.stopOnce.Do(func() {
		w.logger.Infof(w.ctx, "[Worker] %s closing", w.name)

		select {
		case <-w.started:
			w.subscriber.Stop()
			w.subscriber.Wait()
			w.processor.SignalShutdown()
			w.processor.Wait()
		default:
			// 未启动成功，没有协程需要等待
		}

		st := w.subscriber.Stats()
		w.logger.Infof(w.ctx, "[Worker] %s shutdown complete: received=%d, failures=%d, dropped=%d",
			w.name, st.Received, st.Failures, st.Dropped)
		close(w.shutdownCh)
	})
}

// GetName 获取 Worker 名称
func (w *WorkerInstance) GetName() string {
	return w.name
}

// Stats 拉取统计
func (w *WorkerInstance) Stats() framework.SubscriberStats {
	return w.subscriber.Stats()
}
