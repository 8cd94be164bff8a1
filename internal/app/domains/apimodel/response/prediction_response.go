package response

import (
	"time"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

// PredictionResponse 预测响应（DTO）
type PredictionResponse struct {
	ID        string        `json:"id"`
	SampleID  string        `json:"sample_id"`
	Status    string        `json:"status"`
	Report    *model.Report `json:"report,omitempty"`
	Error     *ErrorInfo    `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ErrorInfo 失败信息
type ErrorInfo struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// PredictionListResponse 预测列表
type PredictionListResponse struct {
	Items []*PredictionResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// FromPredictionEntity 领域对象转换为响应
func FromPredictionEntity(p *etprediction.Prediction) *PredictionResponse {
	resp := &PredictionResponse{
		ID:        p.ID,
		SampleID:  p.SampleID,
		Status:    string(p.Status),
		Report:    p.Report,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Status == etprediction.StatusFailed {
		resp.Error = &ErrorInfo{Kind: p.ErrorKind, Message: p.ErrorMessage}
	}
	return resp
}

// FromPredictionList 列表转换
func FromPredictionList(items []*etprediction.Prediction, total int64, page, limit int) *PredictionListResponse {
	out := &PredictionListResponse{
		Items: make([]*PredictionResponse, 0, len(items)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for _, p := range items {
		out.Items = append(out.Items, FromPredictionEntity(p))
	}
	return out
}
