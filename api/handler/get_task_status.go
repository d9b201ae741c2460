package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trafficcount/internal/service/task"
)

type GetTaskStatusReq struct {
	TaskType string `form:"task_type" json:"task_type"`
}

// GetTaskStatus 获取任务状态，默认查询批量生成任务
func GetTaskStatus(manager task.TaskManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GetTaskStatusReq
		if err := c.ShouldBindQuery(&req); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request parameters")
			return
		}
		if req.TaskType == "" {
			req.TaskType = string(task.TaskTypeSeed)
		}

		status := manager.GetStatus(task.TaskType(req.TaskType))
		if status == nil {
			fail(c, http.StatusNotFound, "task has never run")
			return
		}
		success(c, http.StatusOK, "", status)
	}
}
