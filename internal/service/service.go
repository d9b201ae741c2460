package service

import (
	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/eventbus"
	"trafficcount/internal/repository"
	"trafficcount/internal/service/generator"
	"trafficcount/internal/service/session"
	"trafficcount/internal/service/task"
)

// Services 所有服务的集合
type Services struct {
	Store       repository.RecordStore
	Generator   *generator.Generator
	Sessions    session.Store
	EventBus    eventbus.EventBus
	TaskManager task.TaskManager
	Dashboard   DashboardService
	Seeder      *Seeder
}

// NewServices 初始化所有服务
func NewServices(cfg *config.Config, store repository.RecordStore, sessions session.Store, bus eventbus.EventBus, logger *zap.Logger) *Services {
	gen := generator.New(store)
	taskManager := task.NewTaskManager()

	return &Services{
		Store:       store,
		Generator:   gen,
		Sessions:    sessions,
		EventBus:    bus,
		TaskManager: taskManager,
		Dashboard:   NewDashboardService(store, gen, sessions, bus, cfg.Dashboard, cfg.Webhooks, logger),
		Seeder:      NewSeeder(store, gen, taskManager, bus, logger),
	}
}
