package task

import (
	"context"
	"sync"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	TaskTypeSeed     TaskType = "seed"     // 批量生成样本
	TaskTypeGenerate TaskType = "generate" // 定时自动生成
)

// TaskState 任务状态
type TaskState int

const (
	TaskStateRunning  TaskState = iota // 运行中
	TaskStateFinished                  // 已完成
)

func (s TaskState) String() string {
	if s == TaskStateRunning {
		return "running"
	}
	return "finished"
}

// MarshalText 以字符串形式输出状态
func (s TaskState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RunID 一次任务运行的标识，StartTask 时分配
type RunID uint64

// TaskManager 任务管理器接口
type TaskManager interface {
	// StartTask 开始一个新任务，返回任务上下文、运行标识和是否成功
	// 如果同类型任务已在运行，则返回(nil, 0, false)
	StartTask(ctx context.Context, taskType TaskType, total int) (context.Context, RunID, bool)

	// UpdateProgress 更新任务进度，run 不是当前运行时忽略
	UpdateProgress(taskType TaskType, run RunID, completed int, errMsg string)

	// FinishTask 完成任务，run 不是当前运行时忽略
	FinishTask(taskType TaskType, run RunID, errMsg string)

	// CancelTask 取消任务，如果wait为true则等待任务完成
	// 返回是否成功取消和是否因等待超时
	CancelTask(taskType TaskType, wait bool) (bool, bool)

	// IsRunning 检查指定类型的任务是否正在运行
	IsRunning(taskType TaskType) bool

	// GetStatus 获取任务状态
	GetStatus(taskType TaskType) *TaskStatus

	GetAllStatus() map[TaskType]*TaskStatus
}

// TaskStatus 任务状态
type TaskStatus struct {
	Type       TaskType   `json:"type"`
	State      TaskState  `json:"state"`
	StartTime  time.Time  `json:"start_time"`
	FinishTime *time.Time `json:"finish_time,omitempty"`
	Progress   int        `json:"progress"` // 进度(0-100)
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Error      string     `json:"error,omitempty"`
}

// 内部任务结构
type taskInfo struct {
	run        RunID
	status     TaskStatus
	cancelFunc context.CancelFunc
	doneChan   chan struct{}
}

// defaultTaskManager 默认任务管理器实现
type defaultTaskManager struct {
	mu          sync.RWMutex
	tasks       map[TaskType]*taskInfo
	lastRun     RunID
	waitTimeout time.Duration
}

// NewTaskManager 创建任务管理器
func NewTaskManager() TaskManager {
	return &defaultTaskManager{
		tasks:       make(map[TaskType]*taskInfo),
		waitTimeout: 10 * time.Second,
	}
}

// StartTask 开始一个新任务
func (m *defaultTaskManager) StartTask(ctx context.Context, taskType TaskType, total int) (context.Context, RunID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 检查是否有同类型任务正在运行
	if task, exists := m.tasks[taskType]; exists && task.status.State == TaskStateRunning {
		return nil, 0, false
	}

	m.lastRun++
	taskCtx, cancelFunc := context.WithCancel(ctx)
	m.tasks[taskType] = &taskInfo{
		run:    m.lastRun,
		status: TaskStatus{
			Type:      taskType,
			State:     TaskStateRunning,
			StartTime: time.Now(),
			Total:     total,
		},
		cancelFunc: cancelFunc,
		doneChan:   make(chan struct{}),
	}
	return taskCtx, m.lastRun, true
}

// current 返回仍在运行且属于 run 的任务，调用方需持有 m.mu
func (m *defaultTaskManager) current(taskType TaskType, run RunID) (*taskInfo, bool) {
	task, exists := m.tasks[taskType]
	if !exists || task.run != run || task.status.State != TaskStateRunning {
		return nil, false
	}
	return task, true
}

// UpdateProgress 更新任务进度
func (m *defaultTaskManager) UpdateProgress(taskType TaskType, run RunID, completed int, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.current(taskType, run)
	if !ok {
		return
	}

	task.status.Completed = completed
	if task.status.Total > 0 {
		task.status.Progress = completed * 100 / task.status.Total
	}
	task.status.Error = errMsg
}

// FinishTask 完成任务
func (m *defaultTaskManager) FinishTask(taskType TaskType, run RunID, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.current(taskType, run)
	if !ok {
		return
	}

	now := time.Now()
	task.status.FinishTime = &now
	task.status.State = TaskStateFinished
	task.status.Progress = 100
	task.status.Error = errMsg
	task.cancelFunc()

	// 通知任务已完成
	close(task.doneChan)
}

// CancelTask 取消任务
func (m *defaultTaskManager) CancelTask(taskType TaskType, wait bool) (bool, bool) {
	m.mu.Lock()

	task, exists := m.tasks[taskType]
	if !exists || task.status.State != TaskStateRunning {
		m.mu.Unlock()
		return false, false
	}

	task.cancelFunc()
	doneChan := task.doneChan
	run := task.run
	m.mu.Unlock()

	if !wait {
		return true, false
	}

	timeout := false
	select {
	case <-doneChan:
	case <-time.After(m.waitTimeout):
		timeout = true
		// 强制完成任务，旧协程之后的 FinishTask 会因 run 不匹配被忽略
		m.FinishTask(taskType, run, "task cancel timed out")
	}
	return true, timeout
}

// IsRunning 检查指定类型的任务是否正在运行
func (m *defaultTaskManager) IsRunning(taskType TaskType) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskType]
	return exists && task.status.State == TaskStateRunning
}

// GetStatus 获取任务状态副本
func (m *defaultTaskManager) GetStatus(taskType TaskType) *TaskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskType]
	if !exists {
		return nil
	}
	status := task.status
	return &status
}

func (m *defaultTaskManager) GetAllStatus() map[TaskType]*TaskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statusMap := make(map[TaskType]*TaskStatus, len(m.tasks))
	for taskType, task := range m.tasks {
		status := task.status
		statusMap[taskType] = &status
	}
	return statusMap
}
