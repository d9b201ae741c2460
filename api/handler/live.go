package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trafficcount/internal/live"
)

// Live 升级为 websocket，推送记录变更事件
func Live(hub *live.Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.ServeWS(c.Request.Context(), c.Writer, c.Request); err != nil {
			// Upgrade 失败时已经写过响应
			logger.Debug("websocket upgrade failed", zap.Error(err))
		}
	}
}
