package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/internal/service"
)

// GetAnalysis 小时汇总与高峰时段，无数据时返回 409
func GetAnalysis(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := dashboard.Analyze(c.Request.Context())
		if err != nil {
			failWithError(c, err)
			return
		}
		success(c, http.StatusOK, view.Headline, view)
	}
}
