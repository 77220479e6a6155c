// 包 定价引擎的领域模型：合约、模型能力接口、希腊字母与定价结果
package domain

import (
	"fmt"
)

// OptionStyle 期权合约类型
type OptionStyle string

const (
	StyleEuropean OptionStyle = "EUROPEAN" // 欧式
	StyleAmerican OptionStyle = "AMERICAN" // 美式，可提前行权
	StyleAsian    OptionStyle = "ASIAN"    // 算术平均亚式
	StyleDigital  OptionStyle = "DIGITAL"  // 现金或无 (cash-or-nothing)
)

// PayoffKind 收益函数的输入形态
type PayoffKind int

const (
	PayoffSpot PayoffKind = iota // 收益仅依赖到期价格
	PayoffPath                   // 收益依赖整条价格路径
)

func (k PayoffKind) String() string {
	if k == PayoffPath {
		return "path"
	}
	return "spot"
}

// Contract 期权合约
// 值类型，构造后只读；敏感度计算只会操作副本。
type Contract struct {
	Style    OptionStyle
	Strike   float64
	Maturity float64 // 年
	IsCall   bool
	Payout   float64 // 数字期权的现金支付额
}

// ContractOption 合约可选参数
type ContractOption func(*Contract)

// WithPayout 设置数字期权的支付额
func WithPayout(payout float64) ContractOption {
	return func(c *Contract) {
		c.Payout = payout
	}
}

// NewContract 构造并校验期权合约
func NewContract(style OptionStyle, strike, maturity float64, isCall bool, opts ...ContractOption) (Contract, error) {
	c := Contract{
		Style:    style,
		Strike:   strike,
		Maturity: maturity,
		IsCall:   isCall,
	}
	if style == StyleDigital {
		c.Payout = 1
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.Validate(); err != nil {
		return Contract{}, err
	}
	return c, nil
}

// Validate 校验合约不变量: strike > 0, maturity > 0
func (c Contract) Validate() error {
	switch c.Style {
	case StyleEuropean, StyleAmerican, StyleAsian, StyleDigital:
	default:
		return fmt.Errorf("%w: unknown style %q", ErrInvalidContract, c.Style)
	}
	if !(c.Strike > 0) {
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidContract, c.Strike)
	}
	if !(c.Maturity > 0) {
		return fmt.Errorf("%w: maturity must be positive, got %v", ErrInvalidContract, c.Maturity)
	}
	if c.Style == StyleDigital && c.Payout < 0 {
		return fmt.Errorf("%w: payout must be non-negative, got %v", ErrInvalidContract, c.Payout)
	}
	return nil
}

// Kind 返回收益函数的输入形态
func (c Contract) Kind() PayoffKind {
	if c.Style == StyleAsian {
		return PayoffPath
	}
	return PayoffSpot
}

// EarlyExercise 是否允许提前行权
func (c Contract) EarlyExercise() bool {
	return c.Style == StyleAmerican
}

// Payoff 按到期价格计算收益
// 路径型合约退化为单点路径的平均值。
func (c Contract) Payoff(spot float64) float64 {
	if c.Style == StyleDigital {
		if (c.IsCall && spot > c.Strike) || (!c.IsCall && spot < c.Strike) {
			return c.Payout
		}
		return 0
	}
	return c.intrinsic(spot)
}

// PathPayoff 按价格路径计算收益
// 亚式期权取路径算术平均；其余合约取路径末端价格。
func (c Contract) PathPayoff(path []float64) float64 {
	if len(path) == 0 {
		return 0
	}
	if c.Style != StyleAsian {
		return c.Payoff(path[len(path)-1])
	}
	var sum float64
	for _, s := range path {
		sum += s
	}
	return c.intrinsic(sum / float64(len(path)))
}

func (c Contract) intrinsic(s float64) float64 {
	if c.IsCall {
		return max(s-c.Strike, 0)
	}
	return max(c.Strike-s, 0)
}

// WithMaturity 返回修改到期时间后的副本
func (c Contract) WithMaturity(maturity float64) Contract {
	c.Maturity = maturity
	return c
}

// Describe 返回可读描述
func (c Contract) Describe() string {
	kind := "Put"
	if c.IsCall {
		kind = "Call"
	}
	return fmt.Sprintf("%s Option: strike=%v, maturity=%v", kind, c.Strike, c.Maturity)
}

func (c Contract) String() string {
	return fmt.Sprintf("%s %s", c.Style, c.Describe())
}
