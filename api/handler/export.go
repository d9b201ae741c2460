package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/internal/export"
	"trafficcount/internal/service"
)

// ExportRecords 以 csv/json/parquet 格式下载全部记录
func ExportRecords(dashboard service.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatCSV)))
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}

		records, err := dashboard.Records(c.Request.Context())
		if err != nil {
			failWithError(c, err)
			return
		}

		// 先写入缓冲区，出错时还能返回 JSON 错误
		var buf bytes.Buffer
		if err := export.Write(&buf, records, format); err != nil {
			failWithError(c, err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName()))
		c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	}
}
