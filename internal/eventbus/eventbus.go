package eventbus

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventRecordAppended = "record.appended"
	EventRecordsCleared = "records.cleared"
)

// Event 事件接口
type Event interface {
	GetType() string
	GetTimestamp() time.Time
	GetData() map[string]interface{}
}

// EventHandler 事件处理器接口
type EventHandler interface {
	HandleEvent(event Event) error
}

// EventBus 事件总线接口
type EventBus interface {
	Publish(event Event) error
	Subscribe(handler EventHandler) error
	Unsubscribe(handler EventHandler) error
	GetHandlers() []EventHandler
}

// eventBus 事件总线实现
type eventBus struct {
	handlers map[EventHandler]struct{}
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewEventBus 创建新的事件总线
func NewEventBus(logger *zap.Logger) EventBus {
	return &eventBus{
		handlers: make(map[EventHandler]struct{}),
		logger:   logger.Named("eventbus"),
	}
}

// Publish 发布事件，处理器异步执行，不阻塞发布者
func (eb *eventBus) Publish(event Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	for _, handler := range eb.GetHandlers() {
		go func(h EventHandler) {
			if err := h.HandleEvent(event); err != nil {
				// 记录错误，但不影响其他处理器
				eb.logger.Warn("event handler error",
					zap.String("type", event.GetType()),
					zap.Error(err))
			}
		}(handler)
	}
	return nil
}

// Subscribe 订阅事件
func (eb *eventBus) Subscribe(handler EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[handler] = struct{}{}
	return nil
}

// Unsubscribe 取消订阅
func (eb *eventBus) Unsubscribe(handler EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.handlers, handler)
	return nil
}

// GetHandlers 获取所有处理器
func (eb *eventBus) GetHandlers() []EventHandler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	handlers := make([]EventHandler, 0, len(eb.handlers))
	for handler := range eb.handlers {
		handlers = append(handlers, handler)
	}
	return handlers
}

// BaseEvent 基础事件结构
type BaseEvent struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (be *BaseEvent) GetType() string {
	return be.Type
}

func (be *BaseEvent) GetTimestamp() time.Time {
	return be.Timestamp
}

func (be *BaseEvent) GetData() map[string]interface{} {
	return be.Data
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string, data map[string]interface{}) *BaseEvent {
	return &BaseEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// LoggingEventHandler 日志事件处理器
type LoggingEventHandler struct {
	Logger *zap.Logger
}

func (leh *LoggingEventHandler) HandleEvent(event Event) error {
	leh.Logger.Info("event",
		zap.String("type", event.GetType()),
		zap.Time("at", event.GetTimestamp()),
		zap.Any("data", event.GetData()))
	return nil
}

// FilteredEventHandler 过滤事件处理器
type FilteredEventHandler struct {
	handler    EventHandler
	eventTypes map[string]bool
}

func (feh *FilteredEventHandler) HandleEvent(event Event) error {
	if len(feh.eventTypes) > 0 && !feh.eventTypes[event.GetType()] {
		return nil // 跳过不匹配的事件类型
	}
	return feh.handler.HandleEvent(event)
}

// NewFilteredEventHandler 创建过滤事件处理器
func NewFilteredEventHandler(handler EventHandler, eventTypes ...string) *FilteredEventHandler {
	typeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		typeMap[eventType] = true
	}

	return &FilteredEventHandler{
		handler:    handler,
		eventTypes: typeMap,
	}
}
