package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/domains"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
	"github.com/reeta-042/salmonella-amr-api/pkg/config"
	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfy"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// Manager 管理所有预测 Worker 的生命周期
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
type ManagerInstance struct {
	ctx     context.Context
	workers []Worker
	closing *atomic.Bool
	logger  logger.Logger
}

// NewManagerInstance 为 cfg.Workers 的每一项创建一个 Worker
// handler 在启动时构建一次（模板、模型只读共享）
func NewManagerInstance(cfg *config.Config, handler *services.CompositeHandler, log logger.Logger) (*ManagerInstance, error) {
	client, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}
	return newManager(context.Background(), cfg, handler, client, log)
}

// queueClient lmstfy 客户端在 Manager 中承担的两个角色
type queueClient interface {
	framework.MessageSource
	services.Publisher
}

func newManager(ctx context.Context, cfg *config.Config, handler *services.CompositeHandler, client queueClient, log logger.Logger) (*ManagerInstance, error) {
	m := &ManagerInstance{
		ctx:     ctx,
		closing: atomic.NewBool(false),
		logger:  log,
	}
	for i, wc := range cfg.Workers {
		callbackQueue := wc.CallbackQueue
		if callbackQueue == "" {
			callbackQueue = cfg.Lmstfy.CallbackQueue
		}
		if callbackQueue == "" {
			return nil, fmt.Errorf("workers[%d]: callback_queue is required", i)
		}

		spec := specFromConfig(wc)
		predictionService := services.NewPredictionService(handler, client, services.ServiceOptions{
			CallbackQueue:  callbackQueue,
			WorkRoot:       cfg.Engine.WorkRoot,
			CleanupWorkDir: cfg.Engine.CleanupWorkDir,
		}, log)

		w, err := NewWorkerInstance(ctx, spec, client, domains.GetProcess(log, predictionService), log)
		if err != nil {
			return nil, fmt.Errorf("failed to create worker %s: %w", spec.Name, err)
		}
		log.Infof(ctx, "[Manager] Worker %s: queue=%s, callback_queue=%s", spec.Name, spec.Subscriber.QueueName, callbackQueue)
		m.workers = append(m.workers, w)
	}
	if len(m.workers) == 0 {
		return nil, fmt.Errorf("no workers configured")
	}
	return m, nil
}

func specFromConfig(wc config.WorkerConfig) Spec {
	spec := Spec{
		Name: wc.Name,
		Subscriber: framework.SubscriberConfig{
			QueueName:    wc.QueueName,
			Concurrency:  wc.Subscriber.Threads,
			Rate:         wc.Subscriber.Rate,
			Timeout:      wc.Subscriber.Timeout,
			TTR:          wc.Subscriber.TTR,
			ErrorBackoff: wc.Subscriber.ErrorBackoff,
		},
		Processor: framework.ProcessorConfig{
			Concurrency: wc.Processor.Threads,
			BufferSize:  wc.Processor.BufferSize,
			Timeout:     wc.Processor.Timeout,
		},
	}
	if spec.Name == "" {
		spec.Name = wc.QueueName
	}
	return spec
}

// Start 启动所有 Worker，阻塞到全部退出
// 任一 Worker 启动失败时关闭其余 Worker 并返回该错误
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting %d workers", len(m.workers))

	g, gctx := errgroup.WithContext(m.ctx)
	for _, w := range m.workers {
		w := w
		g.Go(w.Start)
	}
	go func() {
		<-gctx.Done()
		m.Shutdown()
	}()

	err := g.Wait()
	if err != nil {
		m.logger.Errorf(m.ctx, "[Manager] Stopped with error: %v", err)
	}
	return err
}

// Shutdown 并行关闭所有 Worker，等待各自处理完已拉取的消息；可重复调用
func (m *ManagerInstance) Shutdown() {
	if !m.closing.CAS(false, true) {
		return
	}
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Shutdown()
		}(w)
	}
	wg.Wait()

	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

// Stats 各 Worker 的拉取统计
func (m *ManagerInstance) Stats() map[string]framework.SubscriberStats {
	out := make(map[string]framework.SubscriberStats, len(m.workers))
	for _, w := range m.workers {
		out[w.GetName()] = w.Stats()
	}
	return out
}
