package svprediction

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// ErrInvalidRequest 请求数据不完整
var ErrInvalidRequest = errors.New("invalid prediction request")

// Dispatcher 任务派发与结果等待（mdprediction.PredictionModule 实现）
type Dispatcher interface {
	PublishPredictJob(ctx context.Context, p *etprediction.Prediction) (string, error)
	WaitForResult(ctx context.Context, predictionID string, timeout time.Duration) (*model.PredictCallback, error)
}

// PredictionService 预测服务，负责预测请求的业务编排
type PredictionService struct {
	repo       rpprediction.PredictionRepository
	dispatcher Dispatcher
	maxWait    time.Duration
	logger     logger.Logger
}

// NewPredictionService 创建预测服务实例
func NewPredictionService(repo rpprediction.PredictionRepository, dispatcher Dispatcher, maxWait time.Duration, log logger.Logger) *PredictionService {
	return &PredictionService{
		repo:       repo,
		dispatcher: dispatcher,
		maxWait:    maxWait,
		logger:     log,
	}
}

// CreatePrediction 创建预测（完整业务流程）
// 1. 校验请求（work_dir 或 gene_table 至少一个）
// 2. 创建预测记录并落库（PROCESSING）
// 3. 发布到预测队列
// 4. Smart Wait（等待回调结果）
func (s *PredictionService) CreatePrediction(ctx context.Context, requestID string, req *model.PredictBusinessData, wait time.Duration) (*etprediction.Prediction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	p, err := etprediction.NewPrediction(uuid.New().String(), requestID, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ctx = context.WithValue(ctx, "job_id", p.ID)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("save prediction failed: %w", err)
	}

	// 3. 发布失败时记录 FAILED，避免记录一直停留在 PROCESSING
	queueJobID, err := s.dispatcher.PublishPredictJob(ctx, p)
	if err != nil {
		s.logger.Errorf(ctx, "[PredictionService] publish predict job failed: %v", err)
		p.MarkAsFailed("", fmt.Sprintf("publish job failed: %v", err))
		if saveErr := s.repo.SaveResult(ctx, p); saveErr != nil {
			s.logger.Errorf(ctx, "[PredictionService] persist failed status failed: %v", saveErr)
		}
		return nil, fmt.Errorf("publish predict job failed: %w", err)
	}
	s.logger.Infof(ctx, "[PredictionService] job published: sample_id=%s, queue_job_id=%s", p.SampleID, queueJobID)

	if wait > s.maxWait {
		wait = s.maxWait
	}
	if wait <= 0 {
		return p, nil
	}

	// 4. Smart Wait
	cb, err := s.dispatcher.WaitForResult(ctx, p.ID, wait)
	if err != nil {
		s.logger.Warnf(ctx, "[PredictionService] wait for result failed: %v", err)
		// 回调可能在订阅生效前到达，回查一次记录
		latest, getErr := s.repo.GetByID(ctx, p.ID)
		if getErr != nil {
			return p, nil
		}
		return latest, nil
	}

	if err := p.ApplyCallback(cb); err != nil {
		return nil, fmt.Errorf("apply callback failed: %w", err)
	}
	return p, nil
}

// GetPrediction 查询预测
func (s *PredictionService) GetPrediction(ctx context.Context, id string) (*etprediction.Prediction, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPredictions 查询样本的预测列表
func (s *PredictionService) ListPredictions(ctx context.Context, sampleID string, page, limit int) ([]*etprediction.Prediction, int64, error) {
	return s.repo.ListBySample(ctx, sampleID, page, limit)
}

// validateRequest 特征表至少要有基因表，或者给出 work_root 下的相对工作目录
func validateRequest(req *model.PredictBusinessData) error {
	if req == nil {
		return fmt.Errorf("%w: request body is required", ErrInvalidRequest)
	}
	if req.WorkDir == "" && req.GeneTable == nil {
		return fmt.Errorf("%w: work_dir or gene_table is required", ErrInvalidRequest)
	}
	// work_dir 由 worker 解析到 engine.work_root 之下
	if req.WorkDir != "" && !filepath.IsLocal(req.WorkDir) {
		return fmt.Errorf("%w: work_dir must be a relative path under the work root", ErrInvalidRequest)
	}
	for name, t := range map[string]*model.TablePayload{
		"gene_table": req.GeneTable,
		"kmer_table": req.KmerTable,
		"snp_table":  req.SNPTable,
	} {
		if t == nil {
			continue
		}
		if len(t.Columns) == 0 {
			return fmt.Errorf("%w: %s has no columns", ErrInvalidRequest, name)
		}
		for i, row := range t.Rows {
			if len(row) != len(t.Columns) {
				return fmt.Errorf("%w: %s row %d has %d cells, want %d", ErrInvalidRequest, name, i, len(row), len(t.Columns))
			}
		}
	}
	return nil
}
