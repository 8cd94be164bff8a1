package routers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/internal/app/server/handlers/prediction"
	"github.com/reeta-042/salmonella-amr-api/internal/app/server/middlewares"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// ServiceVersion /health 返回的版本号
const ServiceVersion = "1.0.0"

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(predictionHandler *prediction.PredictionHandler, log logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Trace())
	r.Use(middlewares.CORS())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"version":   ServiceVersion,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := r.Group("/api/v1")
	{
		predictions := v1.Group("/predictions")
		{
			predictions.POST("", predictionHandler.Create)
			predictions.GET("", predictionHandler.List)
			predictions.GET("/:id", predictionHandler.Get)
		}
	}

	return r
}
