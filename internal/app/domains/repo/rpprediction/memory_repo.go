package rpprediction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/entity/etprediction"
)

// MemoryRepository 进程内预测仓储（未配置 MySQL 的本地环境和测试使用）
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*etprediction.Prediction
}

// NewMemoryRepository 创建进程内仓储
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*etprediction.Prediction)}
}

// Create 保存副本
func (r *MemoryRepository) Create(ctx context.Context, p *etprediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

// GetByID 返回副本
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*etprediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SaveResult 更新状态、报告和错误信息
func (r *MemoryRepository) SaveResult(ctx context.Context, p *etprediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[p.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = p.Status
	stored.ErrorKind = p.ErrorKind
	stored.ErrorMessage = p.ErrorMessage
	if p.Report != nil {
		stored.Report = p.Report
	}
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// ListBySample 按创建时间倒序分页
func (r *MemoryRepository) ListBySample(ctx context.Context, sampleID string, page, limit int) ([]*etprediction.Prediction, int64, error) {
	r.mu.RLock()
	matched := make([]*etprediction.Prediction, 0, len(r.items))
	for _, p := range r.items {
		if sampleID == "" || p.SampleID == sampleID {
			cp := *p
			matched = append(matched, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if limit <= 0 || start >= len(matched) {
		return []*etprediction.Prediction{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
