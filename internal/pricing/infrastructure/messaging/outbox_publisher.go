package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// OutboxMessage 待投递的事件
type OutboxMessage struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OutboxEventPublisher 实现 EventPublisher 接口
// 事件先写入进程内 outbox，同时记录日志与指标；Flush 时统一投递到日志。
type OutboxEventPublisher struct {
	mu        sync.Mutex
	messages  []OutboxMessage
	collector metrics.MetricsCollector
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(collector metrics.MetricsCollector) *OutboxEventPublisher {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &OutboxEventPublisher{collector: collector}
}

// PublishOptionPriced 发布期权定价完成事件
func (p *OutboxEventPublisher) PublishOptionPriced(event domain.OptionPricedEvent) error {
	if event.Steps > 0 {
		p.collector.RecordLatticeSteps(event.Steps)
	}
	return p.publishEvent(domain.OptionPricedEventType, event)
}

// PublishGreeksCalculated 发布希腊字母计算完成事件
func (p *OutboxEventPublisher) PublishGreeksCalculated(event domain.GreeksCalculatedEvent) error {
	for greek, method := range event.Methods {
		p.collector.RecordGreek(greek, method)
	}
	return p.publishEvent(domain.GreeksCalculatedEventType, event)
}

// PublishSchemeFallback 发布格式替换事件
func (p *OutboxEventPublisher) PublishSchemeFallback(event domain.SchemeFallbackEvent) error {
	p.collector.RecordSchemeFallback(event.Requested)
	logger.Warn(context.Background(), "FallbackSubstitution",
		"requested", event.Requested,
		"substitute", event.Substitute,
		"steps", event.Steps,
		"dt", event.Dt,
		"reason", event.Reason)
	return p.publishEvent(domain.SchemeFallbackEventType, event)
}

// PublishConvergenceWarning 发布未收敛告警事件
func (p *OutboxEventPublisher) PublishConvergenceWarning(event domain.ConvergenceWarningEvent) error {
	p.collector.RecordConvergenceWarning(event.Scheme)
	logger.Warn(context.Background(), "ConvergenceWarning",
		"scheme", event.Scheme,
		"steps", event.Steps,
		"last_change", event.LastChange,
		"tolerance", event.Tolerance)
	return p.publishEvent(domain.ConvergenceWarningEventType, event)
}

// PublishPricingError 发布定价错误事件
func (p *OutboxEventPublisher) PublishPricingError(event domain.PricingErrorEvent) error {
	return p.publishEvent(domain.PricingErrorEventType, event)
}

// publishEvent 通用事件发布方法
func (p *OutboxEventPublisher) publishEvent(eventType string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, OutboxMessage{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	})
	return nil
}

// Messages 返回 outbox 中全部消息的副本
func (p *OutboxEventPublisher) Messages() []OutboxMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OutboxMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// Flush 将待投递消息写入日志并标记为已发送，返回本次投递条数
func (p *OutboxEventPublisher) Flush(ctx context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	sent := 0
	for i := range p.messages {
		msg := &p.messages[i]
		if msg.Status != StatusPending {
			continue
		}
		logger.Info(ctx, "event", "event_type", msg.EventType, "event_id", msg.ID, "payload", string(msg.Payload))
		msg.Status = StatusSent
		sent++
	}
	return sent
}
