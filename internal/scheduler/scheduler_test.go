package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/service/task"
)

type countingRunner struct {
	mu    sync.Mutex
	calls []int
}

func (r *countingRunner) Run(_ context.Context, count int, source string, progress func(int)) (int, error) {
	r.mu.Lock()
	r.calls = append(r.calls, count)
	r.mu.Unlock()
	for i := 1; i <= count; i++ {
		progress(i)
	}
	return count, nil
}

func (r *countingRunner) Calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestScheduler_InitAndStatus(t *testing.T) {
	s := NewScheduler(task.NewTaskManager(), &countingRunner{}, zap.NewNop())
	err := s.Init([]config.CronJob{
		{Name: "hourly", Schedule: "0 0 * * * *", Generate: 2},
		{Name: "broken", Schedule: "not a schedule"},
		{Name: "", Schedule: "* * * * * *"},
	})
	require.NoError(t, err)
	defer s.Stop()

	status := s.GetStatus()
	assert.True(t, status.IsRunning)
	require.Len(t, status.Jobs, 1)
	job, ok := status.Jobs["hourly"]
	require.True(t, ok)
	assert.Equal(t, "0 0 * * * *", job.Schedule)
	assert.NotEmpty(t, job.NextRun)
	assert.Empty(t, job.PrevRun)
}

func TestScheduler_UpdateJobReplacesSchedule(t *testing.T) {
	s := NewScheduler(task.NewTaskManager(), &countingRunner{}, zap.NewNop())
	require.NoError(t, s.Init([]config.CronJob{{Name: "tick", Schedule: "0 0 * * * *"}}))
	defer s.Stop()
	firstID := s.jobIDs["tick"]

	// Generate 缺省与默认值等价，不应重新注册
	require.NoError(t, s.UpdateJob(config.CronJob{Name: "tick", Schedule: "0 0 * * * *", Generate: config.DefaultSchedulerGenerate}))
	assert.Equal(t, firstID, s.jobIDs["tick"], "unchanged job keeps its entry")

	require.NoError(t, s.UpdateJob(config.CronJob{Name: "tick", Schedule: "0 */5 * * * *"}))
	assert.NotEqual(t, firstID, s.jobIDs["tick"])

	status := s.GetStatus()
	require.Len(t, status.Jobs, 1)
	assert.Equal(t, "0 */5 * * * *", status.Jobs["tick"].Schedule)
}

func TestScheduler_ExecuteJob(t *testing.T) {
	manager := task.NewTaskManager()
	runner := &countingRunner{}
	s := NewScheduler(manager, runner, zap.NewNop())

	s.executeJob(config.CronJob{Name: "tick", Schedule: "@every 1s", Generate: 3})
	assert.Equal(t, []int{3}, runner.Calls())

	status := manager.GetStatus(task.TaskTypeGenerate)
	require.NotNil(t, status)
	assert.Equal(t, task.TaskStateFinished, status.State)
	assert.Equal(t, 3, status.Completed)
}

func TestScheduler_SkipsWhileSeeding(t *testing.T) {
	manager := task.NewTaskManager()
	runner := &countingRunner{}
	s := NewScheduler(manager, runner, zap.NewNop())

	_, _, ok := manager.StartTask(context.Background(), task.TaskTypeSeed, 10)
	require.True(t, ok)

	s.executeJob(config.CronJob{Name: "tick", Generate: 1})
	assert.Empty(t, runner.Calls())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(task.NewTaskManager(), runner, zap.NewNop())
	require.NoError(t, s.Init(nil))
	require.NoError(t, s.UpdateJob(config.CronJob{Name: "fast", Schedule: "@every 1s"}))

	require.Eventually(t, func() bool { return len(runner.Calls()) > 0 }, 3*time.Second, 20*time.Millisecond)
	<-s.Stop().Done()
	assert.Equal(t, 1, runner.Calls()[0], "generate defaults to one sample")
	assert.False(t, s.GetStatus().IsRunning)
}
