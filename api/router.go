package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trafficcount/api/handler"
	"trafficcount/api/middleware"
	"trafficcount/config"
	"trafficcount/internal/live"
	"trafficcount/internal/scheduler"
	"trafficcount/internal/service"
	"trafficcount/web"
)

// SetupRouter 设置API路由
func SetupRouter(cfg *config.Config, services *service.Services, scheduler *scheduler.Scheduler, hub *live.Hub, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 看板页面
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	})

	webGroup := router.Group("/web/api")
	webGroup.Use(middleware.Auth(cfg.Token), middleware.Session())
	{
		// 刷新看板
		webGroup.POST("/refresh", handler.Refresh(services.Dashboard))

		// 记录增删查
		webGroup.GET("/records", handler.GetRecords(services.Dashboard))
		webGroup.POST("/records", handler.CreateRecord(services.Dashboard))
		webGroup.DELETE("/records", handler.DeleteRecords(services.Dashboard))

		// 小时分析
		webGroup.GET("/analysis", handler.GetAnalysis(services.Dashboard))
		// 导出
		webGroup.GET("/export", handler.ExportRecords(services.Dashboard))

		// 批量生成与任务状态
		webGroup.POST("/seed", handler.Seed(services.Seeder))
		webGroup.GET("/task_status", handler.GetTaskStatus(services.TaskManager))
		webGroup.POST("/stop_task", handler.StopTask(services.TaskManager))
		webGroup.GET("/task_all_status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"result":      "success",
				"status_code": http.StatusOK,
				"data":        services.TaskManager.GetAllStatus(),
			})
		})

		// 调度器状态
		webGroup.GET("/scheduler_status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"result":      "success",
				"status_code": http.StatusOK,
				"data":        scheduler.GetStatus(),
			})
		})

		// 实时推送
		webGroup.GET("/live", handler.Live(hub, logger))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"result":      "fail",
			"status_code": http.StatusNotFound,
			"status_msg":  "Not Found",
		})
	})

	return router
}
