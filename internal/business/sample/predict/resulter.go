package predict

import (
	"context"
	"fmt"
)

// PredictResulter 预测结果处理器
type PredictResulter struct {
	srcData interface{}
	dstData interface{}
}

// NewPredictResulter 创建预测结果处理器
func NewPredictResulter() *PredictResulter {
	return &PredictResulter{}
}

// Set 设置业务结果数据
func (r *PredictResulter) Set(ctx context.Context, data interface{}) error {
	r.srcData = data

	resultData, ok := data.(*PredictResultData)
	if !ok || resultData.Callback == nil {
		return fmt.Errorf("unexpected result data %T", data)
	}

	cb := resultData.Callback
	r.dstData = &PredictOutput{
		JobID:       cb.JobID,
		Status:      cb.Status,
		Report:      cb.Report,
		Error:       cb.Error,
		ProcessedAt: resultData.ProcessedAt,
	}

	return nil
}

// Get 获取格式化后的输出
func (r *PredictResulter) Get(ctx context.Context) interface{} {
	return r.dstData
}
