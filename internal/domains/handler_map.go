package domains

import (
	"context"

	"github.com/reeta-042/salmonella-amr-api/common/model"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict"
	"github.com/reeta-042/salmonella-amr-api/internal/business/sample/predict/services"
	"github.com/reeta-042/salmonella-amr-api/internal/framework"
)

// HandlerFactory Handler 构造函数类型
type HandlerFactory func(
	ctx context.Context,
	baseHandler *framework.BaseHandler,
	predictionService *services.PredictionService,
) (framework.BusinessHandler, error)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]HandlerFactory{
	model.ActionTypePredict: predict.NewPredictHandler,
}
