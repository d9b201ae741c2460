package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 恢复中间件，panic 会记录日志并在启用时上报 sentry
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("method", c.Request.Method),
					zap.String("uri", c.Request.RequestURI),
					zap.Stack("stack"))

				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(c.Request)
				hub.Recover(err)
				hub.Flush(2 * time.Second)

				// 返回500响应
				c.JSON(http.StatusInternalServerError, gin.H{
					"result":      "fail",
					"status_code": http.StatusInternalServerError,
					"status_msg":  "Internal Server Error",
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}

// ReportError 把非预期错误上报 sentry，未初始化时为空操作
func ReportError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetRequest(c.Request)
	hub.Scope().SetTag("route", c.FullPath())
	hub.CaptureException(fmt.Errorf("%s %s: %w", c.Request.Method, c.FullPath(), err))
}
