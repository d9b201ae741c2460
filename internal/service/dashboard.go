package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"trafficcount/config"
	"trafficcount/internal/eventbus"
	"trafficcount/internal/model"
	"trafficcount/internal/repository"
	"trafficcount/internal/service/analysis"
	"trafficcount/internal/service/generator"
	"trafficcount/internal/service/session"
	"trafficcount/internal/util"
)

// Level 提示级别
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Message 页面提示
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// AnalysisView 小时分析结果
type AnalysisView struct {
	Headline  string                `json:"headline"`
	PeakHour  int                   `json:"peak_hour"`
	PeakTotal int                   `json:"peak_total"`
	Hourly    []analysis.HourBucket `json:"hourly"`
}

// Dashboard 一次刷新的完整视图
type Dashboard struct {
	Messages []Message             `json:"messages"`
	Alert    *Message              `json:"alert,omitempty"`
	Empty    bool                  `json:"empty"`
	Records  []model.TrafficRecord `json:"records"`
	Series   []model.TrafficRecord `json:"series"`
	Analysis *AnalysisView         `json:"analysis,omitempty"`
}

// DashboardService 看板服务接口
type DashboardService interface {
	// Refresh 执行一次完整刷新：按会话闸门自动生成、读取、汇总
	Refresh(ctx context.Context, sessionID string, pending model.Entry) (*Dashboard, error)
	// Record 保存手工录入
	Record(ctx context.Context, entry model.Entry) (model.TrafficRecord, Message, error)
	// Clear 清空全部数据
	Clear(ctx context.Context) (Message, error)
	// Records 原始记录
	Records(ctx context.Context) ([]model.TrafficRecord, error)
	// Analyze 对全部记录做小时汇总，无数据时返回 analysis.ErrEmptyInput
	Analyze(ctx context.Context) (*AnalysisView, error)
	// Wait 等待后台告警回调结束
	Wait()
}

type dashboardService struct {
	store     repository.RecordStore
	generator *generator.Generator
	sessions  session.Store
	bus       eventbus.EventBus
	webhooks  *util.WebhookClient
	cfg       config.Dashboard
	hooks     []config.WebhookConfig
	now       func() time.Time
	logger    *zap.Logger
	inflight  sync.WaitGroup
}

// NewDashboardService 创建看板服务
func NewDashboardService(
	store repository.RecordStore,
	gen *generator.Generator,
	sessions session.Store,
	bus eventbus.EventBus,
	cfg config.Dashboard,
	hooks []config.WebhookConfig,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		store:     store,
		generator: gen,
		sessions:  sessions,
		bus:       bus,
		webhooks:  util.NewWebhookClient(),
		cfg:       cfg,
		hooks:     hooks,
		now:       time.Now,
		logger:    logger.Named("dashboard"),
	}
}

func (s *dashboardService) Refresh(ctx context.Context, sessionID string, pending model.Entry) (*Dashboard, error) {
	view := &Dashboard{Messages: []Message{}}

	due, err := s.sessions.Check(ctx, sessionID, s.now())
	if err != nil {
		return nil, fmt.Errorf("check session gate: %w", err)
	}
	if due {
		record, err := s.generator.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("auto generate: %w", err)
		}
		s.publish(eventbus.EventRecordAppended, recordData(record, "auto"))
		view.Messages = append(view.Messages, Message{
			Level: LevelInfo,
			Text: fmt.Sprintf("Auto-generated data - Cars: %d, Bicycles: %d, Pedestrians: %d",
				record.Cars, record.Bicycles, record.Pedestrians),
		})
	}

	if analysis.IsHighTraffic(pending, s.cfg.HighTrafficThreshold) {
		view.Alert = &Message{
			Level: LevelError,
			Text:  fmt.Sprintf("High traffic alert! Total manual vehicles: %d", pending.Total()),
		}
	}

	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		view.Empty = true
		view.Records = []model.TrafficRecord{}
		view.Series = []model.TrafficRecord{}
		view.Messages = append(view.Messages, Message{Level: LevelInfo, Text: "No data recorded yet."})
		return view, nil
	}

	view.Records = records
	view.Series = sortedByTime(records)

	if analysis.ShouldAnalyze(len(records), s.cfg.RecordsPerAnalysis) {
		result, err := analysis.Analyze(records)
		if err != nil {
			return nil, err
		}
		view.Analysis = newAnalysisView(result)
	}
	return view, nil
}

func (s *dashboardService) Record(ctx context.Context, entry model.Entry) (model.TrafficRecord, Message, error) {
	record, err := s.store.Append(ctx, entry.Cars, entry.Bicycles, entry.Pedestrians)
	if err != nil {
		return model.TrafficRecord{}, Message{}, fmt.Errorf("record entry: %w", err)
	}

	data := recordData(record, "manual")
	s.publish(eventbus.EventRecordAppended, data)

	if analysis.IsHighTraffic(entry, s.cfg.HighTrafficThreshold) && len(s.hooks) > 0 {
		// 回调失败只记日志，不影响录入结果
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			for _, err := range s.webhooks.ExecuteWebhooks(ctx, s.hooks, data) {
				s.logger.Warn("high traffic webhook failed", zap.Error(err))
			}
		}()
	}

	return record, Message{
		Level: LevelSuccess,
		Text: fmt.Sprintf("Manual data recorded - Cars: %d, Bicycles: %d, Pedestrians: %d",
			entry.Cars, entry.Bicycles, entry.Pedestrians),
	}, nil
}

func (s *dashboardService) Clear(ctx context.Context) (Message, error) {
	cleared, err := s.store.Clear(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("clear records: %w", err)
	}
	if !cleared {
		return Message{Level: LevelInfo, Text: "No data file found to delete."}, nil
	}
	s.publish(eventbus.EventRecordsCleared, nil)
	return Message{Level: LevelSuccess, Text: "All previous traffic data has been cleared!"}, nil
}

func (s *dashboardService) Records(ctx context.Context) ([]model.TrafficRecord, error) {
	return s.store.Load(ctx)
}

func (s *dashboardService) Analyze(ctx context.Context) (*AnalysisView, error) {
	records, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	result, err := analysis.Analyze(records)
	if err != nil {
		return nil, err
	}
	return newAnalysisView(result), nil
}

func (s *dashboardService) Wait() {
	s.inflight.Wait()
}

func (s *dashboardService) publish(eventType string, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(eventbus.NewBaseEvent(eventType, data)); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

func newAnalysisView(result analysis.Analysis) *AnalysisView {
	return &AnalysisView{
		Headline:  fmt.Sprintf("Peak traffic hour: %d:00 - %d total vehicles", result.PeakHour, result.PeakTotal),
		PeakHour:  result.PeakHour,
		PeakTotal: result.PeakTotal,
		Hourly:    result.Hourly.Buckets(),
	}
}

// sortedByTime 按时间排序的副本，原顺序保持不变
func sortedByTime(records []model.TrafficRecord) []model.TrafficRecord {
	series := make([]model.TrafficRecord, len(records))
	copy(series, records)
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}

func recordData(record model.TrafficRecord, source string) map[string]interface{} {
	return map[string]interface{}{
		"source":      source,
		"date":        record.Date,
		"time":        record.Time.Format(model.TimeLayout),
		"cars":        record.Cars,
		"bicycles":    record.Bicycles,
		"pedestrians": record.Pedestrians,
		"total":       record.Total(),
	}
}

// IsEmptyInput 是否为无数据错误
func IsEmptyInput(err error) bool {
	return errors.Is(err, analysis.ErrEmptyInput)
}
