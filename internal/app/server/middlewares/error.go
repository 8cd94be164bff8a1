package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/reeta-042/salmonella-amr-api/internal/app/pkg/ginx"
	"github.com/reeta-042/salmonella-amr-api/pkg/logger"
)

// ErrorHandler 统一错误处理中间件：捕获 panic 和未写响应的业务错误
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "[HTTP] panic recovered: %v", r)
				ginx.InternalError(c, "internal error")
				c.Abort()
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			ginx.Fail(c, c.Errors.Last().Err)
		}
	}
}
