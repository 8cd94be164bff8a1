package prediction

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/apimodel/response"
	"github.com/reeta-042/salmonella-amr-api/internal/app/domains/repo/rpprediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/pkg/ginx"
)

// 列表分页上限
const maxPageSize = 100

// Get 查询预测详情
// GET /api/v1/predictions/:id
// 提交返回 code=3001 时通过此接口轮询结果
func (h *PredictionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		ginx.BadRequest(c, "prediction id required")
		return
	}

	p, err := h.predictionService.GetPrediction(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, rpprediction.ErrNotFound) {
			ginx.NotFound(c, "prediction not found")
			return
		}
		h.logger.Errorf(c.Request.Context(), "[PredictionHandler] get prediction failed: %v", err)
		ginx.Fail(c, err)
		return
	}

	ginx.Success(c, response.FromPredictionEntity(p))
}

// List 查询预测列表
// GET /api/v1/predictions?sample_id=S1&page=1&limit=20
func (h *PredictionHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}

	items, total, err := h.predictionService.ListPredictions(c.Request.Context(), c.Query("sample_id"), page, limit)
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "[PredictionHandler] list predictions failed: %v", err)
		ginx.Fail(c, err)
		return
	}

	ginx.Success(c, response.FromPredictionList(items, total, page, limit))
}
