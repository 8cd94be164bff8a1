package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/features"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
	"github.com/reeta-042/salmonella-amr-api/pkg/jobctx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// Publisher 回调发布（lmstfy 客户端实现）
type Publisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// PredictionService 预测服务（不涉及 DB 操作）
// 职责：准备特征表 → 执行预测 → 发送回调到 callback 队列
type PredictionService struct {
	handler        *CompositeHandler
	publisher      Publisher
	callbackQueue  string
	workRoot       string
	cleanupWorkDir bool
	logger         logger.Logger
}

// ServiceOptions 工作目录策略
type ServiceOptions struct {
	CallbackQueue  string
	WorkRoot       string // 内联表落盘的根目录，为空时直接使用内存中的表
	CleanupWorkDir bool
}

// NewPredictionService 创建预测服务实例
func NewPredictionService(handler *CompositeHandler, publisher Publisher, opts ServiceOptions, log logger.Logger) *PredictionService {
	return &PredictionService{
		handler:        handler,
		publisher:      publisher,
		callbackQueue:  opts.CallbackQueue,
		workRoot:       opts.WorkRoot,
		cleanupWorkDir: opts.CleanupWorkDir,
		logger:         log,
	}
}

// PredictRequest 服务输入
type PredictRequest struct {
	RequestID string
	Data      *model.PredictBusinessData
}

// ExecutePrediction 执行预测并发送回调
// 预测失败写入回调的 FAILED 状态；返回 error 仅表示回调发送失败（可重试）
func (s *PredictionService) ExecutePrediction(ctx context.Context, req *PredictRequest) (*model.PredictCallback, error) {
	// 1. 执行预测
	rep, predErr := s.Predict(ctx, req.Data)

	// 2. 构造回调消息
	callback := &model.PredictCallback{
		RequestID:   req.RequestID,
		JobID:       req.Data.JobID,
		SampleID:    req.Data.SampleID,
		ProcessedAt: time.Now().Unix(),
	}
	switch {
	case rep == nil:
		callback.Status = model.CallbackStatusFailed
		callback.Error = predErr.Error()
		callback.ErrorKind = string(errorutil.KindOf(predErr))
	case rep.Status == model.ReportStatusPartial:
		callback.Status = model.CallbackStatusPartial
		callback.Report = rep
		callback.SampleID = rep.SampleID
		if predErr != nil {
			callback.Error = predErr.Error()
			callback.ErrorKind = string(errorutil.KindOf(predErr))
		}
	default:
		callback.Status = model.CallbackStatusSuccess
		callback.Report = rep
		callback.SampleID = rep.SampleID
	}

	s.logger.Infof(ctx, "[PredictionService] Job %s finished with status %s", callback.JobID, callback.Status)

	// 3. 发送回调到 callback 队列
	if err := s.publishCallback(callback); err != nil {
		return callback, errorutil.RetriableWithDetails("publish callback failed", err.Error())
	}
	return callback, nil
}

// Predict 准备特征表并执行预测（不发送回调）
func (s *PredictionService) Predict(ctx context.Context, data *model.PredictBusinessData) (*model.Report, error) {
	gene, kmer, snp, cleanup, err := s.loadTables(ctx, data)
	if cleanup != nil {
		defer func() {
			if err := cleanup(); err != nil {
				s.logger.Warnf(ctx, "[PredictionService] Cleanup work dir failed: %v", err)
			}
		}()
	}
	if err != nil {
		return nil, err
	}

	submitted := time.Time{}
	if data.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, data.SubmittedAt); err == nil {
			submitted = t
		}
	}

	return s.handler.Predict(ctx, &PredictInput{
		JobID:           data.JobID,
		SampleID:        data.SampleID,
		SubmittedAt:     submitted,
		GenomeSizeBytes: data.GenomeSizeBytes,
		Gene:            gene,
		Kmer:            kmer,
		SNP:             snp,
	})
}

// loadTables 获取三张特征表
//
// 1. 指定 work_dir：读取提取流水线写出的 CSV；配置了 work_root 时目录必须位于其下
// 2. 内联表：配置了 work_root 时先落盘到 work_root/<job_id> 再读取，否则直接使用
func (s *PredictionService) loadTables(ctx context.Context, data *model.PredictBusinessData) (gene, kmer, snp *features.Table, cleanup func() error, err error) {
	if data.WorkDir != "" {
		dir := data.WorkDir
		if s.workRoot != "" {
			if dir, err = jobctx.Within(s.workRoot, data.WorkDir); err != nil {
				return nil, nil, nil, nil, errorutil.MalformedTable("work_dir %q is outside %s", data.WorkDir, s.workRoot)
			}
		}
		gene, kmer, snp, err = features.LoadTables(jobctx.WithWorkDir(ctx, dir))
		return gene, kmer, snp, nil, err
	}

	if gene, err = features.FromPayload("gene", data.GeneTable); err != nil {
		return nil, nil, nil, nil, err
	}
	if gene == nil {
		return nil, nil, nil, nil, errorutil.MalformedTable("gene table is required")
	}
	if kmer, err = features.FromPayload("kmer", data.KmerTable); err != nil {
		return nil, nil, nil, nil, err
	}
	if snp, err = features.FromPayload("snp", data.SNPTable); err != nil {
		return nil, nil, nil, nil, err
	}
	if s.workRoot == "" {
		return gene, kmer, snp, nil, nil
	}

	jctx, remove, err := jobctx.Create(ctx, s.workRoot, data.JobID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create work dir: %w", err)
	}
	if s.cleanupWorkDir {
		cleanup = remove
	}
	if err := features.WriteTables(jctx, gene, kmer, snp); err != nil {
		return nil, nil, nil, cleanup, fmt.Errorf("write tables: %w", err)
	}
	gene, kmer, snp, err = features.LoadTables(jctx)
	return gene, kmer, snp, cleanup, err
}

// publishCallback ttl=0 表示永不过期, delay=0 表示立即可用
func (s *PredictionService) publishCallback(callback *model.PredictCallback) error {
	callbackJSON, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("failed to marshal callback: %w", err)
	}
	if err := s.publisher.Publish(s.callbackQueue, callbackJSON, 0, 0); err != nil {
		return fmt.Errorf("failed to publish callback: %w", err)
	}
	return nil
}
