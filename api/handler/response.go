package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/api/middleware"
	"trafficcount/internal/service/analysis"
)

// success 统一成功响应
func success(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, gin.H{
		"result":      "success",
		"status_code": status,
		"status_msg":  msg,
		"data":        data,
	})
}

// fail 统一失败响应
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{
		"result":      "fail",
		"status_code": status,
		"status_msg":  msg,
	})
}

// failWithError 按错误类型映射状态码
func failWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrEmptyInput):
		fail(c, http.StatusConflict, "No data recorded yet.")
	default:
		// 包括 repository.ErrMalformedRecord 在内的存储错误
		middleware.ReportError(c, err)
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
