package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/internal/model"
	"trafficcount/internal/service"
)

// CreateRecord 保存手工录入
func CreateRecord(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var entry model.Entry
		if err := c.ShouldBindJSON(&entry); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request parameters: "+err.Error())
			return
		}

		record, msg, err := dashboard.Record(c.Request.Context(), entry)
		if err != nil {
			failWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"result":      "success",
			"status_code": http.StatusCreated,
			"status_msg":  msg.Text,
			"level":       msg.Level,
			"data":        record,
		})
	}
}

// GetRecords 获取全部原始记录
func GetRecords(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := dashboard.Records(c.Request.Context())
		if err != nil {
			failWithError(c, err)
			return
		}
		success(c, http.StatusOK, "", records)
	}
}

// DeleteRecords 清空全部数据
func DeleteRecords(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		msg, err := dashboard.Clear(c.Request.Context())
		if err != nil {
			failWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"result":      "success",
			"status_code": http.StatusOK,
			"status_msg":  msg.Text,
			"level":       msg.Level,
		})
	}
}
