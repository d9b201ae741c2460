package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trafficcount/internal/eventbus"
	"trafficcount/internal/model"
	"trafficcount/internal/repository"
	"trafficcount/internal/service/generator"
	"trafficcount/internal/service/task"
)

// ErrTaskRunning 同类任务正在运行
var ErrTaskRunning = errors.New("task already running")

// MaxSeedCount 单次批量生成上限
const MaxSeedCount = 10000

// Seeder 批量生成随机样本
type Seeder struct {
	store       repository.RecordStore
	generator   *generator.Generator
	taskManager task.TaskManager
	bus         eventbus.EventBus
	logger      *zap.Logger
}

// NewSeeder 创建批量生成器
func NewSeeder(store repository.RecordStore, gen *generator.Generator, taskManager task.TaskManager, bus eventbus.EventBus, logger *zap.Logger) *Seeder {
	return &Seeder{
		store:       store,
		generator:   gen,
		taskManager: taskManager,
		bus:         bus,
		logger:      logger.Named("seeder"),
	}
}

// Run 同步生成 count 条记录，progress 在每条写入后回调
//
// 抽样和写入分在两个协程，写入保持串行，避免文件仓库丢失更新。
func (s *Seeder) Run(ctx context.Context, count int, source string, progress func(done int)) (int, error) {
	if count <= 0 {
		return 0, nil
	}

	entries := make(chan model.Entry, 16)
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(entries)
		for i := 0; i < count; i++ {
			select {
			case entries <- s.generator.Draw():
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		for entry := range entries {
			record, err := s.store.Append(gctx, entry.Cars, entry.Bicycles, entry.Pedestrians)
			if err != nil {
				return fmt.Errorf("append sample %d: %w", done+1, err)
			}
			done++
			s.publish(record, source)
			if progress != nil {
				progress(done)
			}
		}
		return nil
	})

	err := g.Wait()
	return done, err
}

// Start 以后台任务方式生成 count 条记录
func (s *Seeder) Start(count int) error {
	if count <= 0 || count > MaxSeedCount {
		return fmt.Errorf("seed count must be between 1 and %d", MaxSeedCount)
	}

	ctx, run, ok := s.taskManager.StartTask(context.Background(), task.TaskTypeSeed, count)
	if !ok {
		return ErrTaskRunning
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("seed task panic", zap.Any("panic", r))
				s.taskManager.FinishTask(task.TaskTypeSeed, run, "seed task panicked")
			}
		}()

		n, err := s.Run(ctx, count, "seed", func(done int) {
			s.taskManager.UpdateProgress(task.TaskTypeSeed, run, done, "")
		})
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			s.logger.Warn("seed task stopped", zap.Int("written", n), zap.Error(err))
		} else {
			s.logger.Info("seed task finished", zap.Int("written", n))
		}
		s.taskManager.FinishTask(task.TaskTypeSeed, run, errMsg)
	}()
	return nil
}

func (s *Seeder) publish(record model.TrafficRecord, source string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(eventbus.NewBaseEvent(eventbus.EventRecordAppended, recordData(record, source))); err != nil {
		s.logger.Warn("publish event failed", zap.Error(err))
	}
}
