package domain

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// PublishOptionPriced 发布期权定价完成事件
	PublishOptionPriced(event OptionPricedEvent) error

	// PublishGreeksCalculated 发布希腊字母计算完成事件
	PublishGreeksCalculated(event GreeksCalculatedEvent) error

	// PublishSchemeFallback 发布格式替换事件
	PublishSchemeFallback(event SchemeFallbackEvent) error

	// PublishConvergenceWarning 发布未收敛告警事件
	PublishConvergenceWarning(event ConvergenceWarningEvent) error

	// PublishPricingError 发布定价错误事件
	PublishPricingError(event PricingErrorEvent) error
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) PublishOptionPriced(OptionPricedEvent) error             { return nil }
func (NopPublisher) PublishGreeksCalculated(GreeksCalculatedEvent) error     { return nil }
func (NopPublisher) PublishSchemeFallback(SchemeFallbackEvent) error         { return nil }
func (NopPublisher) PublishConvergenceWarning(ConvergenceWarningEvent) error { return nil }
func (NopPublisher) PublishPricingError(PricingErrorEvent) error             { return nil }
