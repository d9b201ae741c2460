package repository

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trafficcount/config"
	"trafficcount/internal/model"
)

// InitDB 初始化数据库连接
func InitDB(storeConfig config.Store, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	// 根据配置选择数据库驱动
	switch storeConfig.Driver {
	case "sqlite":
		dialector = sqlite.Open(storeConfig.DSN)
	case "postgres":
		dialector = postgres.Open(storeConfig.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", storeConfig.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", storeConfig.Driver, err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if storeConfig.Driver == "sqlite" {
		// 设置WAL模式，提高并发性能
		db.Exec("PRAGMA journal_mode = WAL;")
		// 设置busy_timeout，避免"database is locked"错误
		db.Exec("PRAGMA busy_timeout = 5000;")
		db.Exec("PRAGMA synchronous = NORMAL;")
	}

	if err := db.AutoMigrate(&model.TrafficRecord{}); err != nil {
		return nil, fmt.Errorf("migrate traffic records: %w", err)
	}

	logger.Info("database initialized", zap.String("driver", storeConfig.Driver))
	return db, nil
}
