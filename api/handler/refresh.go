package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/api/middleware"
	"trafficcount/internal/model"
	"trafficcount/internal/service"
)

// Refresh 执行一次看板刷新，请求体为尚未提交的手工录入
func Refresh(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var pending model.Entry
		if err := c.ShouldBindJSON(&pending); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, "Invalid request parameters: "+err.Error())
			return
		}

		view, err := dashboard.Refresh(c.Request.Context(), middleware.SessionID(c), pending)
		if err != nil {
			failWithError(c, err)
			return
		}
		success(c, http.StatusOK, "", view)
	}
}
