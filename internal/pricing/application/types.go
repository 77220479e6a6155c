package application

import (
	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// ModelParams 模型构造参数，各模型只读取自己需要的字段
type ModelParams struct {
	Spot   float64 `json:"spot"`
	Rate   float64 `json:"rate"`
	Vol    float64 `json:"vol"`
	V0     float64 `json:"v0"`
	Kappa  float64 `json:"kappa"`
	Theta  float64 `json:"theta"`
	Xi     float64 `json:"xi"`
	Rho    float64 `json:"rho"`
	Lambda float64 `json:"lambda"`
	MuJ    float64 `json:"mu_j"`
	SigmaJ float64 `json:"sigma_j"`
	Scheme string  `json:"scheme"` // 三叉树格式，空串使用配置默认值
}

// ContractParams 合约构造参数
type ContractParams struct {
	Strike   float64 `json:"strike"`
	Maturity float64 `json:"maturity"`
	IsCall   bool    `json:"is_call"`
	Payout   float64 `json:"payout"` // 仅数字期权
}

// PriceOptionCommand 期权定价命令
type PriceOptionCommand struct {
	Model          string         `json:"model"`
	Contract       string         `json:"contract"`
	ModelParams    ModelParams    `json:"model_params"`
	ContractParams ContractParams `json:"contract_params"`
	WithGreeks     bool           `json:"with_greeks"`
}

const (
	DefaultModel    = "BlackScholes"
	DefaultContract = "European"
)

// WithDefaults 补全缺省的模型与合约名称
func (c PriceOptionCommand) WithDefaults() PriceOptionCommand {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Contract == "" {
		c.Contract = DefaultContract
	}
	return c
}

// BatchPriceOptionsCommand 批量定价命令
type BatchPriceOptionsCommand struct {
	BatchID   string               `json:"batch_id"`
	Contracts []PriceOptionCommand `json:"contracts"`
}

// BatchPricingResult 批量定价结果
type BatchPricingResult struct {
	BatchID      string                  `json:"batch_id"`
	Results      []*domain.PricingResult `json:"results"`
	Errors       []string                `json:"errors,omitempty"`
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	AverageTime  float64                 `json:"average_time"`
}
