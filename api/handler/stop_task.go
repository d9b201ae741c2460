package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/internal/service/task"
)

// StopTaskRequest 停止任务请求
type StopTaskRequest struct {
	TaskType string `form:"task_type" json:"task_type" binding:"required"` // 任务类型，必填
	Wait     *bool  `form:"wait" json:"wait"`                              // 是否等待任务清理完成
}

// StopTask 停止任务处理器
func StopTask(taskManager task.TaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StopTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "task_type is required")
			return
		}

		taskType := task.TaskType(req.TaskType)
		if !taskManager.IsRunning(taskType) {
			fail(c, http.StatusNotFound, "task is not running")
			return
		}

		// 默认等待任务清理完成，客户端可以通过 wait=false 立即返回
		wait := true
		if req.Wait != nil {
			wait = *req.Wait
		}

		cancelled, timedOut := taskManager.CancelTask(taskType, wait)
		if !cancelled {
			fail(c, http.StatusInternalServerError, "failed to stop task")
			return
		}

		msg := "task stopped"
		if timedOut {
			msg = "task stopped, cleanup timed out"
		}
		c.JSON(http.StatusOK, gin.H{
			"result":      "success",
			"status_code": http.StatusOK,
			"status_msg":  msg,
			"timed_out":   timedOut,
		})
	}
}
