package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/model"
)

// ErrMalformedRecord 持久化数据无法解析
var ErrMalformedRecord = errors.New("malformed traffic record")

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time

// RecordStore 交通计数记录仓库接口
type RecordStore interface {
	// Load 读取全部记录，存储不存在时初始化为空
	Load(ctx context.Context) ([]model.TrafficRecord, error)
	// Append 以当前时间追加一条记录
	Append(ctx context.Context, cars, bicycles, pedestrians int) (model.TrafficRecord, error)
	// Clear 删除全部持久化数据，返回是否确实删除了内容
	Clear(ctx context.Context) (bool, error)
}

// Option 仓库选项
type Option func(*storeOptions)

type storeOptions struct {
	clock Clock
}

// WithClock 指定时间来源
func WithClock(clock Clock) Option {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewRecordStore 根据配置创建记录仓库，返回的 close 函数用于释放底层连接
func NewRecordStore(cfg config.Store, logger *zap.Logger, opts ...Option) (RecordStore, func() error, error) {
	switch cfg.Driver {
	case "", "csv":
		logger.Info("using csv record store", zap.String("path", cfg.Path))
		return NewCSVRecordStore(cfg.Path, opts...), func() error { return nil }, nil
	case "sqlite", "postgres":
		db, err := InitDB(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return NewGormRecordStore(db, opts...), sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
