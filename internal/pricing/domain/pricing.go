package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Greeks 希腊字母
type Greeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// WarningKind 非致命数值告警类型
type WarningKind string

const (
	WarningConvergence WarningKind = "ConvergenceWarning"   // 步数达到上限仍未满足容差
	WarningFallback    WarningKind = "FallbackSubstitution" // 无效格式被替换为稳健格式
)

// Warning 定价过程中产生的非致命告警
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// PricingResult 定价结果实体
type PricingResult struct {
	ID           string            `json:"id"`
	PricingModel string            `json:"pricing_model"`
	Contract     string            `json:"contract"`
	OptionPrice  decimal.Decimal   `json:"option_price"`
	StdError     *decimal.Decimal  `json:"std_error,omitempty"`
	Delta        *decimal.Decimal  `json:"delta,omitempty"`
	Gamma        *decimal.Decimal  `json:"gamma,omitempty"`
	Theta        *decimal.Decimal  `json:"theta,omitempty"`
	Vega         *decimal.Decimal  `json:"vega,omitempty"`
	Rho          *decimal.Decimal  `json:"rho,omitempty"`
	GreekMethods map[string]string `json:"greek_methods,omitempty"`
	Scheme       string            `json:"scheme,omitempty"`
	Steps        int               `json:"steps,omitempty"`
	Warnings     []Warning         `json:"warnings,omitempty"`
	CalculatedAt time.Time         `json:"calculated_at"`
}
