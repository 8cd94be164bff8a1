package predict

import (
	"context"
	"time"

	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/pkg/errorutil"
)

// PreProcess 预处理
func (h *PredictHandler) PreProcess(ctx context.Context) error {
	if h.payload.JobID == "" {
		h.payload.JobID = h.GetMeta().ID
	}
	if h.payload.JobID == "" {
		return errorutil.NonRetriable("job_id is required")
	}
	// 表缺失等输入问题不在这里拦截：进入 Process 后由服务发送 FAILED 回调
	return nil
}

// Process 核心处理：执行预测并发送回调
func (h *PredictHandler) Process(ctx context.Context) error {
	ctx = context.WithValue(ctx, "job_id", h.payload.JobID)

	callback, err := h.predictionService.ExecutePrediction(ctx, &services.PredictRequest{
		RequestID: h.GetMeta().RequestID,
		Data:      h.payload,
	})
	if err != nil {
		return err
	}

	h.callback = callback
	return nil
}

// PostProcess 后处理
func (h *PredictHandler) PostProcess(ctx context.Context) error {
	err := h.GetResulter().Set(ctx, &PredictResultData{
		Callback:    h.callback,
		ProcessedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	h.SetOutput(h.GetResulter().Get(ctx))
	return nil
}
