package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddress           = "127.0.0.1:8080"
	DefaultCSVPath           = "traffic_counts.csv"
	DefaultRecordsPerBatch   = 24
	DefaultAutoInterval      = 10 * time.Second
	DefaultHighTrafficLimit  = 50
	DefaultSessionTTL        = 24 * time.Hour
	DefaultLogLevel          = "info"
	DefaultLogEncoding       = "console"
	DefaultSeedCount         = 24
	DefaultSchedulerGenerate = 1
)

// Config 应用程序配置
type Config struct {
	Token     string          `yaml:"token"`
	Server    Server          `yaml:"server"`
	Store     Store           `yaml:"store"`
	Dashboard Dashboard       `yaml:"dashboard"`
	Session   Session         `yaml:"session"`
	Log       Log             `yaml:"log"`
	Sentry    Sentry          `yaml:"sentry"`
	CronJobs  []CronJob       `yaml:"cron_jobs"`
	Webhooks  []WebhookConfig `yaml:"webhooks"`
}

// Server 服务器配置
type Server struct {
	Address string `yaml:"address"`
}

// Store 记录存储配置
type Store struct {
	Driver string `yaml:"driver"` // csv, sqlite, postgres
	Path   string `yaml:"path"`   // csv 文件路径
	DSN    string `yaml:"dsn"`    // sqlite/postgres 连接串
}

// Dashboard 看板参数
type Dashboard struct {
	RecordsPerAnalysis   int           `yaml:"records_per_analysis"`
	AutoInterval         time.Duration `yaml:"auto_interval"`
	HighTrafficThreshold int           `yaml:"high_traffic_threshold"`
}

// Session 会话状态存储配置
type Session struct {
	Driver    string        `yaml:"driver"` // memory, redis
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	Password  string        `yaml:"password"`
	TTL       time.Duration `yaml:"ttl"`
}

// Log 日志配置
type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"` // console, json
}

// Sentry 错误上报配置
type Sentry struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// CronJob 定时任务配置
type CronJob struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Generate int    `yaml:"generate"` // 每次触发生成的样本数
}

// WebhookConfig 高流量告警回调
type WebhookConfig struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	URL    string `yaml:"url"`
	Header string `yaml:"header"`
	Body   string `yaml:"body"`
}

// LoadConfig 从文件加载配置
func LoadConfig() (*Config, error) {
	// 1. 尝试从环境变量获取配置文件路径
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return LoadFile(configPath)
}

// LoadFile 读取指定路径的配置，文件不存在时使用默认值
func LoadFile(path string) (*Config, error) {
	// 0 是合法阈值，只有配置中缺省该项时才取默认值
	cfg := Config{Dashboard: Dashboard{HighTrafficThreshold: DefaultHighTrafficLimit}}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// 没有配置文件时全部走默认值
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 环境变量覆盖
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("TRAFFIC_TOKEN"); ok {
		cfg.Token = v
	}
	if v, ok := os.LookupEnv("TRAFFIC_ADDR"); ok {
		cfg.Server.Address = v
	}
	if v, ok := os.LookupEnv("TRAFFIC_STORE_PATH"); ok {
		cfg.Store.Path = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "csv"
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultCSVPath
	}
	if c.Dashboard.RecordsPerAnalysis <= 0 {
		c.Dashboard.RecordsPerAnalysis = DefaultRecordsPerBatch
	}
	if c.Dashboard.AutoInterval <= 0 {
		c.Dashboard.AutoInterval = DefaultAutoInterval
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = DefaultLogEncoding
	}
	for i := range c.CronJobs {
		if c.CronJobs[i].Generate <= 0 {
			c.CronJobs[i].Generate = DefaultSchedulerGenerate
		}
	}
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Dashboard.HighTrafficThreshold < 0 {
		return fmt.Errorf("config: dashboard.high_traffic_threshold must not be negative: %d", c.Dashboard.HighTrafficThreshold)
	}

	switch c.Store.Driver {
	case "csv":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unsupported store driver: %s", c.Store.Driver)
	}

	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New("config: session.redis_addr is required for redis sessions")
		}
	default:
		return fmt.Errorf("config: unsupported session driver: %s", c.Session.Driver)
	}
	return nil
}
