package prediction

import (
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svprediction"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// PredictionHandler 预测 HTTP 处理器
type PredictionHandler struct {
	predictionService *svprediction.PredictionService
	logger            logger.Logger
}

// NewPredictionHandler 创建预测处理器实例
func NewPredictionHandler(predictionService *svprediction.PredictionService, log logger.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		logger:            log,
	}
}
