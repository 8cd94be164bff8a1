package rpprediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reeta-042/salmonella-amr-api/common/entity"
	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

// PredictionRepositoryImpl 预测仓储实现（MySQL）
type PredictionRepositoryImpl struct {
	db *gorm.DB
}

// NewPredictionRepository 创建预测仓储实例
func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &PredictionRepositoryImpl{db: db}
}

// Create 创建预测记录，将领域对象转换为 GORM 模型后存储
func (r *PredictionRepositoryImpl) Create(ctx context.Context, p *etprediction.Prediction) error {
	po, err := toGormModel(p)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(po).Error
}

// GetByID 根据 ID 查询预测记录
func (r *PredictionRepositoryImpl) GetByID(ctx context.Context, id string) (*etprediction.Prediction, error) {
	var po entity.Prediction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toDomainModel(&po)
}

// SaveResult 更新状态、报告和错误信息
func (r *PredictionRepositoryImpl) SaveResult(ctx context.Context, p *etprediction.Prediction) error {
	updates := map[string]interface{}{
		"status":        string(p.Status),
		"error_kind":    p.ErrorKind,
		"error_message": p.ErrorMessage,
		"updated_at":    time.Now().UTC(),
	}

	if p.Report != nil {
		reportJSON, err := json.Marshal(p.Report)
		if err != nil {
			return fmt.Errorf("marshal report failed: %w", err)
		}
		updates["report"] = reportJSON
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Prediction{}).
		Where("id = ?", p.ID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySample 分页查询样本的预测记录
func (r *PredictionRepositoryImpl) ListBySample(ctx context.Context, sampleID string, page, limit int) ([]*etprediction.Prediction, int64, error) {
	var total int64
	var pos []entity.Prediction

	query := r.db.WithContext(ctx).Model(&entity.Prediction{})
	if sampleID != "" {
		query = query.Where("sample_id = ?", sampleID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, 0, err
	}

	predictions := make([]*etprediction.Prediction, 0, len(pos))
	for i := range pos {
		p, err := toDomainModel(&pos[i])
		if err != nil {
			return nil, 0, err
		}
		predictions = append(predictions, p)
	}
	return predictions, total, nil
}

// toGormModel 领域对象转换为 GORM 模型
func toGormModel(p *etprediction.Prediction) (*entity.Prediction, error) {
	requestJSON, err := json.Marshal(p.Request)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	po := &entity.Prediction{
		ID:           p.ID,
		RequestID:    p.RequestID,
		SampleID:     p.SampleID,
		RawRequest:   requestJSON,
		Status:       string(p.Status),
		ErrorKind:    p.ErrorKind,
		ErrorMessage: p.ErrorMessage,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}

	if p.Report != nil {
		reportJSON, err := json.Marshal(p.Report)
		if err != nil {
			return nil, fmt.Errorf("marshal report failed: %w", err)
		}
		po.Report = reportJSON
	}
	return po, nil
}

// toDomainModel GORM 模型转换为领域对象
func toDomainModel(po *entity.Prediction) (*etprediction.Prediction, error) {
	var req model.PredictBusinessData
	if len(po.RawRequest) > 0 {
		if err := json.Unmarshal(po.RawRequest, &req); err != nil {
			return nil, fmt.Errorf("unmarshal request failed: %w", err)
		}
	}

	p := &etprediction.Prediction{
		ID:           po.ID,
		RequestID:    po.RequestID,
		SampleID:     po.SampleID,
		Request:      &req,
		Status:       etprediction.Status(po.Status),
		ErrorKind:    po.ErrorKind,
		ErrorMessage: po.ErrorMessage,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}

	if len(po.Report) > 0 {
		var report model.Report
		if err := json.Unmarshal(po.Report, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report failed: %w", err)
		}
		p.Report = &report
	}
	return p, nil
}
