package prediction

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/apimodel/request"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/apimodel/response"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/services/svprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/pkg/ginx"
	"github.com/reeta-042/salmonella-amr-api/internal/app/server/middlewares"
)

// Create 提交预测
// POST /api/v1/predictions?wait=10
func (h *PredictionHandler) Create(c *gin.Context) {
	waitSeconds := 0
	if waitStr := c.Query("wait"); waitStr != "" {
		if w, err := strconv.Atoi(waitStr); err == nil && w > 0 {
			waitSeconds = w
		}
	}

	var req request.CreatePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.predictionService.CreatePrediction(ctx, middlewares.TraceID(c), req.ToBusinessData(), time.Duration(waitSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, svprediction.ErrInvalidRequest) {
			ginx.BadRequest(c, err.Error())
			return
		}
		h.logger.Errorf(ctx, "[PredictionHandler] create prediction failed: %v", err)
		ginx.Fail(c, err)
		return
	}

	if !p.Status.Finished() {
		ginx.Processing(c, p.ID, fmt.Sprintf("/api/v1/predictions/%s", p.ID))
		return
	}
	ginx.Success(c, response.FromPredictionEntity(p))
}
