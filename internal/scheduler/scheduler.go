package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/service/task"
)

// Runner 批量生成样本
type Runner interface {
	Run(ctx context.Context, count int, source string, progress func(done int)) (int, error)
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron        *cron.Cron
	jobMutex    sync.Mutex
	isRunning   bool
	taskManager task.TaskManager
	runner      Runner
	jobIDs      map[string]cron.EntryID   // 存储任务ID，用于更新
	jobs        map[string]config.CronJob // 已注册任务的配置
	logger      *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(taskManager task.TaskManager, runner Runner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:        newCron(),
		taskManager: taskManager,
		runner:      runner,
		jobIDs:      make(map[string]cron.EntryID),
		jobs:        make(map[string]config.CronJob),
		logger:      logger.Named("scheduler"),
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger)))
}

// Init 按配置注册任务并启动调度器
func (s *Scheduler) Init(cronJobs []config.CronJob) error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// 如果已经在运行，先停止
	if s.isRunning {
		s.cron.Stop()
	}

	s.cron = newCron()
	s.jobIDs = make(map[string]cron.EntryID)
	s.jobs = make(map[string]config.CronJob)

	for _, job := range cronJobs {
		if err := s.addJobLocked(job); err != nil {
			s.logger.Warn("skip cron job", zap.String("job", job.Name), zap.Error(err))
		}
	}

	s.cron.Start()
	s.isRunning = true
	return nil
}

// Stop 停止调度器，等待执行中的任务结束
func (s *Scheduler) Stop() context.Context {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if !s.isRunning {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.isRunning = false
	s.logger.Info("scheduler stopped")
	return s.cron.Stop()
}

// UpdateJob 更新单个任务，配置未变化时保留原有调度
func (s *Scheduler) UpdateJob(job config.CronJob) error {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	job = normalizeJob(job)
	if old, exists := s.jobs[job.Name]; exists && cmp.Equal(old, job) {
		return nil
	}

	// 如果任务已存在，先移除
	if id, exists := s.jobIDs[job.Name]; exists {
		s.cron.Remove(id)
		delete(s.jobIDs, job.Name)
		delete(s.jobs, job.Name)
	}
	return s.addJobLocked(job)
}

func normalizeJob(job config.CronJob) config.CronJob {
	if job.Generate <= 0 {
		job.Generate = config.DefaultSchedulerGenerate
	}
	return job
}

func (s *Scheduler) addJobLocked(job config.CronJob) error {
	if job.Name == "" || job.Schedule == "" {
		return fmt.Errorf("job %q has no name or schedule", job.Name)
	}
	job = normalizeJob(job)

	jobConfig := job // 创建副本避免闭包问题
	entryID, err := s.cron.AddFunc(jobConfig.Schedule, func() {
		s.executeJob(jobConfig)
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", job.Name, err)
	}

	s.jobIDs[job.Name] = entryID
	s.jobs[job.Name] = job
	s.logger.Info("cron job added",
		zap.String("job", job.Name),
		zap.String("schedule", job.Schedule),
		zap.Int("generate", job.Generate))
	return nil
}

// executeJob 执行定时任务
func (s *Scheduler) executeJob(job config.CronJob) {
	logger := s.logger.With(zap.String("job", job.Name))

	// 批量生成进行中时跳过，避免两路写入交错
	if s.taskManager.IsRunning(task.TaskTypeSeed) {
		logger.Info("seed task is running, skipping job")
		return
	}

	ctx, run, ok := s.taskManager.StartTask(context.Background(), task.TaskTypeGenerate, job.Generate)
	if !ok {
		logger.Info("previous run still in progress, skipping job")
		return
	}

	errMsg := ""
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panic", zap.Any("panic", r))
			errMsg = "job panicked"
		}
		s.taskManager.FinishTask(task.TaskTypeGenerate, run, errMsg)
	}()

	n, err := s.runner.Run(ctx, job.Generate, "cron", func(done int) {
		s.taskManager.UpdateProgress(task.TaskTypeGenerate, run, done, "")
	})
	if err != nil {
		errMsg = err.Error()
		logger.Warn("job failed", zap.Int("generated", n), zap.Error(err))
		return
	}
	logger.Debug("job finished", zap.Int("generated", n))
}

// JobStatus 单个任务的调度时间
type JobStatus struct {
	Schedule string `json:"schedule,omitempty"`
	NextRun  string `json:"next_run"`
	PrevRun  string `json:"prev_run"`
}

// Status 调度器状态
type Status struct {
	IsRunning bool                 `json:"is_running"`
	Jobs      map[string]JobStatus `json:"jobs"`
}

// GetStatus 获取调度器状态
func (s *Scheduler) GetStatus() Status {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	status := Status{
		IsRunning: s.isRunning,
		Jobs:      make(map[string]JobStatus, len(s.jobIDs)),
	}
	for name, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		status.Jobs[name] = JobStatus{
			Schedule: s.jobs[name].Schedule,
			NextRun:  formatRun(entry.Next),
			PrevRun:  formatRun(entry.Prev),
		}
	}
	return status
}

func formatRun(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
