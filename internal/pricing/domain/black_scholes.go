package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholesInput Black-Scholes 模型输入
type BlackScholesInput struct {
	S float64 // 标的资产价格
	K float64 // 执行价格
	T float64 // 到期时间 (年)
	R float64 // 无风险利率
	V float64 // 波动率
}

// BlackScholesResult Black-Scholes 模型输出
type BlackScholesResult struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// CalculateBlackScholes 计算 Black-Scholes 价格和 Greeks
func CalculateBlackScholes(isCall bool, input BlackScholesInput) BlackScholesResult {
	sqrtT := math.Sqrt(input.T)
	d1 := (math.Log(input.S/input.K) + (input.R+0.5*input.V*input.V)*input.T) / (input.V * sqrtT)
	d2 := d1 - input.V*sqrtT
	df := math.Exp(-input.R * input.T)
	pdf := distuv.UnitNormal.Prob(d1)

	res := BlackScholesResult{
		Gamma: pdf / (input.S * input.V * sqrtT),
		Vega:  input.S * sqrtT * pdf,
	}
	if isCall {
		res.Price = input.S*normCDF(d1) - input.K*df*normCDF(d2)
		res.Delta = normCDF(d1)
		res.Theta = -input.S*pdf*input.V/(2*sqrtT) - input.R*input.K*df*normCDF(d2)
		res.Rho = input.K * input.T * df * normCDF(d2)
	} else {
		res.Price = input.K*df*normCDF(-d2) - input.S*normCDF(-d1)
		res.Delta = normCDF(d1) - 1
		res.Theta = -input.S*pdf*input.V/(2*sqrtT) + input.R*input.K*df*normCDF(-d2)
		res.Rho = -input.K * input.T * df * normCDF(-d2)
	}
	return res
}

// normCDF 标准正态分布累积分布函数
func normCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// BlackScholesModel Black-Scholes-Merton 闭式定价
// 欧式与数字期权有解析价格；无股息美式看涨等价于欧式。
type BlackScholesModel struct {
	Spot float64
	Rate float64
	Vol  float64
}

// NewBlackScholesModel 创建闭式模型
func NewBlackScholesModel(spot, rate, vol float64) (BlackScholesModel, error) {
	m := BlackScholesModel{Spot: spot, Rate: rate, Vol: vol}
	if err := m.validate(); err != nil {
		return BlackScholesModel{}, err
	}
	return m, nil
}

func (m BlackScholesModel) validate() error {
	if !(m.Spot > 0) {
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidModel, m.Spot)
	}
	if !(m.Vol > 0) {
		return fmt.Errorf("%w: vol must be positive, got %v", ErrInvalidModel, m.Vol)
	}
	return nil
}

func (m BlackScholesModel) Name() string { return "BlackScholes" }

func (m BlackScholesModel) String() string {
	return fmt.Sprintf("BlackScholes(spot=%v, rate=%v, vol=%v)", m.Spot, m.Rate, m.Vol)
}

func (m BlackScholesModel) input(c Contract) BlackScholesInput {
	return BlackScholesInput{S: m.Spot, K: c.Strike, T: c.Maturity, R: m.Rate, V: m.Vol}
}

// analytic 欧式 (及无股息美式看涨) 的闭式结果
func (m BlackScholesModel) analytic(c Contract) (BlackScholesResult, error) {
	switch {
	case c.Style == StyleEuropean:
	case c.Style == StyleAmerican && c.IsCall:
	default:
		return BlackScholesResult{}, fmt.Errorf("%w: %s under %s", ErrUnsupportedContract, c, m.Name())
	}
	return CalculateBlackScholes(c.IsCall, m.input(c)), nil
}

// Price 计算期权价格
func (m BlackScholesModel) Price(c Contract) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Style == StyleDigital {
		in := m.input(c)
		d2 := (math.Log(in.S/in.K) + (in.R-0.5*in.V*in.V)*in.T) / (in.V * math.Sqrt(in.T))
		if !c.IsCall {
			d2 = -d2
		}
		return c.Payout * math.Exp(-in.R*in.T) * normCDF(d2), nil
	}
	res, err := m.analytic(c)
	if err != nil {
		return 0, err
	}
	return res.Price, nil
}

func (m BlackScholesModel) Delta(c Contract) (float64, error) {
	res, err := m.analytic(c)
	return res.Delta, err
}

func (m BlackScholesModel) Gamma(c Contract) (float64, error) {
	res, err := m.analytic(c)
	return res.Gamma, err
}

func (m BlackScholesModel) Vega(c Contract) (float64, error) {
	res, err := m.analytic(c)
	return res.Vega, err
}

func (m BlackScholesModel) Theta(c Contract) (float64, error) {
	res, err := m.analytic(c)
	return res.Theta, err
}

func (m BlackScholesModel) Rho(c Contract) (float64, error) {
	res, err := m.analytic(c)
	return res.Rho, err
}

// Param 读取模型参数
func (m BlackScholesModel) Param(p Parameter) (float64, error) {
	switch p {
	case ParamSpot:
		return m.Spot, nil
	case ParamVolatility:
		return m.Vol, nil
	case ParamRate:
		return m.Rate, nil
	}
	return 0, fmt.Errorf("%w: %s on %s", ErrUnsupportedParameter, p, m.Name())
}

// WithParam 返回修改参数后的副本
func (m BlackScholesModel) WithParam(p Parameter, v float64) (Model, error) {
	switch p {
	case ParamSpot:
		m.Spot = v
	case ParamVolatility:
		m.Vol = v
	case ParamRate:
		m.Rate = v
	default:
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedParameter, p, m.Name())
	}
	return m, nil
}
