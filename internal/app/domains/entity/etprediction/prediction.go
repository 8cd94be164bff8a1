package etprediction

import (
	"errors"
	"time"

	"github.com/reeta-042/salmonella-amr-api/common/model"
)

// 错误定义
var (
	ErrInvalidPredictionID = errors.New("prediction ID cannot be empty")
	ErrInvalidSampleID     = errors.New("sample ID cannot be empty")
	ErrNilRequest          = errors.New("prediction request cannot be nil")
	ErrNilReport           = errors.New("prediction report cannot be nil")
)

// Prediction 预测聚合根（领域对象）
type Prediction struct {
	ID           string                     // 预测任务 ID (UUID)
	RequestID    string                     // 链路追踪 ID
	SampleID     string                     // 样本 ID
	Request      *model.PredictBusinessData // 提交的特征数据
	Status       Status                     // 预测状态
	Report       *model.Report              // 预测报告
	ErrorKind    string                     // 失败分类
	ErrorMessage string                     // 失败信息
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Status 预测状态
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusPartial    Status = "PARTIAL"
	StatusFailed     Status = "FAILED"
)

// Finished 是否已经得到最终结果
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// NewPrediction 创建预测（工厂方法）
func NewPrediction(id, requestID string, req *model.PredictBusinessData) (*Prediction, error) {
	if id == "" {
		return nil, ErrInvalidPredictionID
	}
	if req == nil {
		return nil, ErrNilRequest
	}
	if req.SampleID == "" {
		return nil, ErrInvalidSampleID
	}

	now := time.Now().UTC()
	req.JobID = id
	if req.SubmittedAt == "" {
		req.SubmittedAt = now.Format(time.RFC3339)
	}

	return &Prediction{
		ID:        id,
		RequestID: requestID,
		SampleID:  req.SampleID,
		Request:   req,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete 写入报告，报告状态决定 COMPLETED 或 PARTIAL（领域行为）
func (p *Prediction) Complete(report *model.Report) error {
	if report == nil {
		return ErrNilReport
	}
	p.Report = report
	p.Status = StatusCompleted
	if report.Status == model.ReportStatusPartial {
		p.Status = StatusPartial
	}
	p.ErrorKind = ""
	p.ErrorMessage = ""
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsFailed 标记为失败（领域行为）
func (p *Prediction) MarkAsFailed(kind, message string) {
	p.Status = StatusFailed
	p.ErrorKind = kind
	p.ErrorMessage = message
	p.UpdatedAt = time.Now().UTC()
}

// ApplyCallback 根据 worker 回调更新状态
func (p *Prediction) ApplyCallback(cb *model.PredictCallback) error {
	switch cb.Status {
	case model.CallbackStatusSuccess, model.CallbackStatusPartial:
		if cb.Report == nil {
			p.MarkAsFailed(cb.ErrorKind, "callback without report")
			return nil
		}
		return p.Complete(cb.Report)
	default:
		p.MarkAsFailed(cb.ErrorKind, cb.Error)
		return nil
	}
}
