package predict

import (
	"context"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
)

// PredictHandler 耐药预测处理器
type PredictHandler struct {
	framework.BaseHandler

	payload           *model.PredictBusinessData
	predictionService *services.PredictionService
	callback          *model.PredictCallback
}

// NewPredictHandler 创建预测处理器
func NewPredictHandler(
	ctx context.Context,
	baseHandler *framework.BaseHandler,
	predictionService *services.PredictionService,
) (framework.BusinessHandler, error) {
	var payload model.PredictBusinessData
	if err := baseHandler.DecodeBizPayload(&payload); err != nil {
		return nil, err
	}

	handler := &PredictHandler{
		BaseHandler:       *baseHandler,
		payload:           &payload,
		predictionService: predictionService,
	}

	handler.SetResulter(NewPredictResulter())

	return handler, nil
}

// Handle 处理入口
func (h *PredictHandler) Handle(ctx context.Context) ([]byte, error) {
	preProcessor := framework.NewPreProcessor(h.PreProcess, h.Process, h.PostProcess)
	if err := preProcessor.Run(ctx); err != nil {
		data, wrapErr := h.WrapErrorResponse(ctx, err)
		if wrapErr != nil {
			return nil, wrapErr
		}
		return data, err
	}

	output := h.GetOutput()
	return h.WrapResponse(ctx, output)
}
