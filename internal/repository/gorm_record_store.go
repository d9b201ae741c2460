package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"trafficcount/internal/model"
)

// GormRecordStore 基于GORM的记录仓库实现
type GormRecordStore struct {
	db    *gorm.DB
	clock Clock
}

// NewGormRecordStore 创建GORM记录仓库
func NewGormRecordStore(db *gorm.DB, opts ...Option) *GormRecordStore {
	o := buildOptions(opts)
	return &GormRecordStore{
		db:    db,
		clock: o.clock,
	}
}

// Load 按插入顺序读取全部记录，表不存在时先建表
func (r *GormRecordStore) Load(ctx context.Context) ([]model.TrafficRecord, error) {
	db := r.db.WithContext(ctx)
	if err := r.ensureTable(db); err != nil {
		return nil, err
	}

	var records []model.TrafficRecord
	if err := db.Order("id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query traffic records: %w", err)
	}
	// 数据库驱动可能以 UTC 返回，小时统计按本地时间
	for i := range records {
		records[i].Time = records[i].Time.Local()
	}
	return records, nil
}

// Append 插入一条新记录
func (r *GormRecordStore) Append(ctx context.Context, cars, bicycles, pedestrians int) (model.TrafficRecord, error) {
	db := r.db.WithContext(ctx)
	if err := r.ensureTable(db); err != nil {
		return model.TrafficRecord{}, err
	}

	record := model.NewTrafficRecord(r.clock().Truncate(time.Microsecond), cars, bicycles, pedestrians)
	if err := db.Create(&record).Error; err != nil {
		return model.TrafficRecord{}, fmt.Errorf("insert traffic record: %w", err)
	}
	return record, nil
}

// Clear 删除记录表，表不存在时返回 false
func (r *GormRecordStore) Clear(ctx context.Context) (bool, error) {
	migrator := r.db.WithContext(ctx).Migrator()
	if !migrator.HasTable(&model.TrafficRecord{}) {
		return false, nil
	}
	if err := migrator.DropTable(&model.TrafficRecord{}); err != nil {
		return false, fmt.Errorf("drop traffic records: %w", err)
	}
	return true, nil
}

func (r *GormRecordStore) ensureTable(db *gorm.DB) error {
	if db.Migrator().HasTable(&model.TrafficRecord{}) {
		return nil
	}
	if err := db.AutoMigrate(&model.TrafficRecord{}); err != nil {
		return fmt.Errorf("migrate traffic records: %w", err)
	}
	return nil
}
