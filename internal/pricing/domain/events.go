package domain

import "time"

const (
	OptionPricedEventType       = "OptionPriced"
	GreeksCalculatedEventType   = "GreeksCalculated"
	SchemeFallbackEventType     = "SchemeFallback"
	ConvergenceWarningEventType = "ConvergenceWarning"
	PricingErrorEventType       = "PricingError"
)

// OptionPricedEvent 期权定价完成事件
type OptionPricedEvent struct {
	ResultID     string    `json:"result_id"`
	PricingModel string    `json:"pricing_model"`
	Contract     string    `json:"contract"`
	OptionPrice  float64   `json:"option_price"`
	Scheme       string    `json:"scheme,omitempty"`
	Steps        int       `json:"steps,omitempty"`
	Duration     float64   `json:"duration"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// GreeksCalculatedEvent 希腊字母计算完成事件
type GreeksCalculatedEvent struct {
	ResultID     string            `json:"result_id"`
	PricingModel string            `json:"pricing_model"`
	Greeks       Greeks            `json:"greeks"`
	Methods      map[string]string `json:"methods"`
	OccurredOn   time.Time         `json:"occurred_on"`
}

// SchemeFallbackEvent 格式替换事件
// 请求的格式概率无效且自适应细化无法修复时发出。
type SchemeFallbackEvent struct {
	Requested  string    `json:"requested"`
	Substitute string    `json:"substitute"`
	Steps      int       `json:"steps"`
	Dt         float64   `json:"dt"`
	Reason     string    `json:"reason"`
	OccurredOn time.Time `json:"occurred_on"`
}

// ConvergenceWarningEvent 步数达到上限仍未收敛事件
type ConvergenceWarningEvent struct {
	Scheme     string    `json:"scheme"`
	Steps      int       `json:"steps"`
	LastChange float64   `json:"last_change"`
	Tolerance  float64   `json:"tolerance"`
	OccurredOn time.Time `json:"occurred_on"`
}

// PricingErrorEvent 定价错误事件
type PricingErrorEvent struct {
	PricingModel string    `json:"pricing_model"`
	Contract     string    `json:"contract"`
	Error        string    `json:"error"`
	OccurredOn   time.Time `json:"occurred_on"`
}
