package session

import (
	"context"
	"time"
)

// Gate 会话级自动生成闸门
//
// Last 记录上次触发时间，只保存在会话存储中，会话重建后重新计时。
type Gate struct {
	Interval time.Duration
	Last     time.Time
}

// NewGate 以会话开始时间创建闸门
func NewGate(start time.Time, interval time.Duration) *Gate {
	return &Gate{
		Interval: interval,
		Last:     start,
	}
}

// Due 距上次触发超过间隔时返回 true 并把 Last 推进到 now
func (g *Gate) Due(now time.Time) bool {
	if now.Sub(g.Last) > g.Interval {
		g.Last = now
		return true
	}
	return false
}

// Store 会话闸门存储
type Store interface {
	// Check 取出(或创建)会话闸门并检查是否到期，到期时同时推进
	Check(ctx context.Context, sessionID string, now time.Time) (bool, error)
	// Reset 丢弃会话状态
	Reset(ctx context.Context, sessionID string) error
	Close() error
}
