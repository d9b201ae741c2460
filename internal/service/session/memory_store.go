package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内会话存储
type MemoryStore struct {
	interval time.Duration
	ttl      time.Duration

	mu        sync.Mutex
	gates     map[string]*Gate
	lastSweep time.Time
}

// NewMemoryStore 创建进程内会话存储，超过 ttl 未触发的会话会被清理
func NewMemoryStore(interval, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		interval: interval,
		ttl:      ttl,
		gates:    make(map[string]*Gate),
	}
}

// Check 检查并推进会话闸门
func (s *MemoryStore) Check(_ context.Context, sessionID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	gate, ok := s.gates[sessionID]
	if !ok {
		s.gates[sessionID] = NewGate(now, s.interval)
		return false, nil
	}
	return gate.Due(now), nil
}

// Reset 删除会话
func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gates, sessionID)
	return nil
}

// Len 当前会话数
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gates)
}

func (s *MemoryStore) Close() error {
	return nil
}

// sweepLocked 调用方需持有 s.mu
func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for id, gate := range s.gates {
		if now.Sub(gate.Last) > s.ttl {
			delete(s.gates, id)
		}
	}
	s.lastSweep = now
}
