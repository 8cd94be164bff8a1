package framework

import (
	"context"
	"sync"
	"time"

	"github.com/bitleak/lmstfy/client"
	"go.uber.org/atomic"

	"github.com/reeta-042/salmonella-amr-api/pkg/lmstfyx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// Processor 从 inputChan 取消息，调用注入的 Proc，再按结果 ACK / 放弃
type Processor struct {
	cfg        *ProcessorConfig
	proc       lmstfyx.Proc
	source     MessageSource // 用于 ACK
	logger     logger.Logger
	shutdownCh chan struct{}
	wg         sync.WaitGroup

	succeeded *atomic.Int64
	released  *atomic.Int64
	buried    *atomic.Int64
}

// ProcessorStats 处理结果统计
type ProcessorStats struct {
	Succeeded int64
	Released  int64
	Buried    int64
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc lmstfyx.Proc, source MessageSource, log logger.Logger) *Processor {
	return &Processor{
		cfg:        cfg.withDefaults(),
		proc:       proc,
		source:     source,
		logger:     log,
		shutdownCh: make(chan struct{}),
		succeeded:  atomic.NewInt64(0),
		released:   atomic.NewInt64(0),
		buried:     atomic.NewInt64(0),
	}
}

// Start 启动 Concurrency 个处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) error {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers, timeout=%s", p.cfg.Concurrency, p.cfg.Timeout)
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i, inputChan)
	}
	return nil
}

// SignalShutdown 进入 Drain 模式：处理完 inputChan 中已有的消息后退出
// 调用前 Subscriber 必须已经停止写入
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	st := p.Stats()
	p.logger.Infof(context.Background(), "[Processor] All workers exited: succeeded=%d, released=%d, buried=%d",
		st.Succeeded, st.Released, st.Buried)
}

// Stats 处理结果统计
func (p *Processor) Stats() ProcessorStats {
	return ProcessorStats{
		Succeeded: p.succeeded.Load(),
		Released:  p.released.Load(),
		Buried:    p.buried.Load(),
	}
}

func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	p.logger.Debugf(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)
		case <-p.shutdownCh:
			p.drain(ctx, workerID, inputChan)
			return
		}
	}
}

// drain 非阻塞地取完剩余消息
func (p *Processor) drain(ctx context.Context, workerID int, inputChan <-chan *Message) {
	n := 0
	for {
		select {
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)
			n++
		default:
			p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, n)
			return
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}
	startTime := time.Now()

	// 1. 单条消息超时（未配置时只随父 Context 取消）
	var (
		procCtx context.Context
		cancel  context.CancelFunc
	)
	if p.cfg.Timeout > 0 {
		procCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
	} else {
		procCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	procCtx = context.WithValue(procCtx, "worker_id", workerID)
	procCtx = context.WithValue(procCtx, "message_id", msg.ID)
	p.logger.Infof(procCtx, "[Processor-%d] Processing message: %s, queued: %v", workerID, msg.ID, msg.QueueDelay(startTime))

	// 2. 调用 Proc
	resp := p.proc(procCtx, &client.Job{ID: msg.ID, Queue: msg.Queue, Data: msg.Data})
	if resp == nil {
		resp = lmstfyx.Bury(nil)
	}
	p.logger.Infof(procCtx, "[Processor-%d] Message processed: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, time.Since(startTime))

	// 3. 落地结果
	p.settle(procCtx, msg, resp, workerID)
}

// settle 处理结果落地
//   - Success：ACK
//   - Bury：不可重试，ACK 并记录错误日志
//   - Release：不 ACK，TTR 到期后重新投递
func (p *Processor) settle(ctx context.Context, msg *Message, resp *lmstfyx.JobResp, workerID int) {
	switch resp.Action {
	case lmstfyx.JobRespStatusRelease:
		p.released.Inc()
		p.logger.Warnf(ctx, "[Processor-%d] Message released for retry: %s, err: %v", workerID, msg.ID, resp.Err)
		return
	case lmstfyx.JobRespStatusBury:
		p.buried.Inc()
		p.logger.Errorf(ctx, "[Processor-%d] Message buried: %s, err: %v, data: %s", workerID, msg.ID, resp.Err, string(resp.Data))
	default:
		p.succeeded.Inc()
	}

	if err := p.source.Ack(msg.Queue, msg.ID); err != nil {
		p.logger.Errorf(ctx, "[Processor-%d] Ack failed: %s, err: %v", workerID, msg.ID, err)
	}
}
