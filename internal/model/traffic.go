package model

import (
	"fmt"
	"time"
)

const (
	// DateLayout Date 列格式
	DateLayout = "2006-01-02"
	// TimeLayout Time 列写入格式
	TimeLayout = "2006-01-02 15:04:05.000000"
	// MaxCount 单项计数上限，三项之和不会溢出 int
	MaxCount = 1000000
)

// TrafficRecord 一次交通计数观测
type TrafficRecord struct {
	ID          uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	Date        string    `json:"date" gorm:"size:10;not null"`
	Time        time.Time `json:"time" gorm:"index;not null"`
	Cars        int       `json:"cars" gorm:"not null"`
	Bicycles    int       `json:"bicycles" gorm:"not null"`
	Pedestrians int       `json:"pedestrians" gorm:"not null"`
}

// TableName gorm 表名
func (TrafficRecord) TableName() string {
	return "traffic_records"
}

// NewTrafficRecord 以给定时刻构造记录，Date 取自同一时刻
func NewTrafficRecord(at time.Time, cars, bicycles, pedestrians int) TrafficRecord {
	return TrafficRecord{
		Date:        at.Format(DateLayout),
		Time:        at,
		Cars:        cars,
		Bicycles:    bicycles,
		Pedestrians: pedestrians,
	}
}

// Total 三类计数之和
func (r TrafficRecord) Total() int {
	return r.Cars + r.Bicycles + r.Pedestrians
}

// Hour 记录所在小时(0-23)
func (r TrafficRecord) Hour() int {
	return r.Time.Hour()
}

// Entry 待提交的手工录入
type Entry struct {
	Cars        int `json:"cars" form:"cars" binding:"min=0,max=1000000"`
	Bicycles    int `json:"bicycles" form:"bicycles" binding:"min=0,max=1000000"`
	Pedestrians int `json:"pedestrians" form:"pedestrians" binding:"min=0,max=1000000"`
}

// Validate 检查各项计数在 [0, MaxCount] 内
func (e Entry) Validate() error {
	for _, n := range []int{e.Cars, e.Bicycles, e.Pedestrians} {
		if n < 0 || n > MaxCount {
			return fmt.Errorf("counts must be between 0 and %d", MaxCount)
		}
	}
	return nil
}

// Total 录入合计
func (e Entry) Total() int {
	return e.Cars + e.Bicycles + e.Pedestrians
}
