package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/config"
	"trafficcount/internal/service"
)

// SeedRequest 批量生成请求
type SeedRequest struct {
	Count int `json:"count" form:"count"`
}

// Seed 后台批量生成随机样本
func Seed(seeder *service.Seeder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeedRequest
		if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, "Invalid request parameters")
			return
		}
		if req.Count == 0 {
			req.Count = config.DefaultSeedCount
		}

		if err := seeder.Start(req.Count); err != nil {
			if errors.Is(err, service.ErrTaskRunning) {
				fail(c, http.StatusConflict, "A seed task is already running")
				return
			}
			fail(c, http.StatusBadRequest, err.Error())
			return
		}

		success(c, http.StatusAccepted, "Seed task started", gin.H{"count": req.Count})
	}
}
