package session

import (
	"fmt"
	"time"

	"trafficcount/config"
)

// NewStore 根据配置创建会话存储
func NewStore(cfg config.Session, interval time.Duration) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(interval, cfg.TTL), nil
	case "redis":
		client, err := NewRedisClient(cfg.RedisAddr, cfg.Password, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connect session redis: %w", err)
		}
		return NewRedisStore(client, interval, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session driver: %s", cfg.Driver)
	}
}
