package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Prediction 预测记录（包含最终报告）
type Prediction struct {
	ID        string `gorm:"column:id;primaryKey;type:varchar(64)"`
	RequestID string `gorm:"column:request_id;type:varchar(64);not null"`
	SampleID  string `gorm:"column:sample_id;type:varchar(128);not null;index:idx_sample"`

	// 请求数据（特征表或工作目录）
	RawRequest datatypes.JSON `gorm:"column:request;type:json;not null"`

	// 预测状态与结果
	Status       string         `gorm:"column:status;type:varchar(16);not null;default:'PROCESSING';index:idx_status"`
	Report       datatypes.JSON `gorm:"column:report;type:json"`
	ErrorKind    string         `gorm:"column:error_kind;type:varchar(32)"`
	ErrorMessage string         `gorm:"column:error_message;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Prediction) TableName() string {
	return "predictions"
}

// 预测状态常量
const (
	PredictionStatusProcessing = "PROCESSING"
	PredictionStatusCompleted  = "COMPLETED"
	PredictionStatusPartial    = "PARTIAL"
	PredictionStatusFailed     = "FAILED"
)
