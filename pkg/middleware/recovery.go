package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/richxcame/claims-fraud/pkg/common"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns a panic in a handler into a 500 envelope. The claim or
// insured write that panicked is not retried.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithContext(c.Request.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("route", c.FullPath()),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)

				common.AppErrorResponse(c, common.NewInternalServerError("internal server error", nil))
				c.Abort()
			}
		}()

		c.Next()
	}
}
