package montecarlo

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// GBMModel 几何布朗运动路径模拟
// 欧式合约提供 pathwise 的 delta、vega、rho 估计。
type GBMModel struct {
	Spot float64
	Rate float64
	Vol  float64
	Sim  SimulationConfig
}

// NewGBMModel 创建几何布朗运动模型
func NewGBMModel(spot, rate, vol float64, sim SimulationConfig) (GBMModel, error) {
	m := GBMModel{Spot: spot, Rate: rate, Vol: vol, Sim: sim}
	if !(spot > 0) {
		return GBMModel{}, fmt.Errorf("%w: spot must be positive, got %v", domain.ErrInvalidModel, spot)
	}
	if !(vol > 0) {
		return GBMModel{}, fmt.Errorf("%w: vol must be positive, got %v", domain.ErrInvalidModel, vol)
	}
	if err := sim.Validate(); err != nil {
		return GBMModel{}, err
	}
	return m, nil
}

func (m GBMModel) Name() string { return "MonteCarloGBM" }

func (m GBMModel) String() string {
	return fmt.Sprintf("MonteCarloGBM(spot=%v, rate=%v, vol=%v, paths=%d, steps=%d)",
		m.Spot, m.Rate, m.Vol, m.Sim.Paths, m.Sim.Steps)
}

// Simulate 按精确对数正态转移生成价格路径
func (m GBMModel) Simulate(maturity float64) (*Ensemble, error) {
	steps, paths := m.Sim.Steps, m.Sim.Paths
	dt := maturity / float64(steps)
	rng := rand.New(newSource(m.Sim.Seed))
	drift := (m.Rate - 0.5*m.Vol*m.Vol) * dt
	diffusion := m.Vol * math.Sqrt(dt)
	ens := newEnsemble(steps, paths, dt, false)

	for p := 0; p < paths; p++ {
		s := m.Spot
		ens.prices[ens.index(0, p)] = s
		for t := 1; t <= steps; t++ {
			s *= math.Exp(drift + diffusion*rng.NormFloat64())
			ens.prices[ens.index(t, p)] = s
		}
	}
	return ens, nil
}

// Estimate 返回价格与标准误
func (m GBMModel) Estimate(c domain.Contract) (Estimate, error) {
	return price(m, c, m.Rate)
}

// Price 计算期权价格
func (m GBMModel) Price(c domain.Contract) (float64, error) {
	est, err := m.Estimate(c)
	return est.Price, err
}

// pathwise 对欧式合约的每条路径求收益对参数的导数并折现平均
func (m GBMModel) pathwise(c domain.Contract, deriv func(sT float64) float64) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if c.Style != domain.StyleEuropean {
		return 0, fmt.Errorf("%w: pathwise estimator needs a continuous european payoff", domain.ErrUnsupportedContract)
	}
	ens, err := m.Simulate(c.Maturity)
	if err != nil {
		return 0, err
	}
	var sum float64
	for p := 0; p < ens.Paths; p++ {
		sT := ens.Terminal(p)
		if (c.IsCall && sT > c.Strike) || (!c.IsCall && sT < c.Strike) {
			sum += deriv(sT)
		}
	}
	return math.Exp(-m.Rate*c.Maturity) * sum / float64(ens.Paths), nil
}

func (m GBMModel) sign(c domain.Contract) float64 {
	if c.IsCall {
		return 1
	}
	return -1
}

// Delta dS_T/dS_0 = S_T/S_0
func (m GBMModel) Delta(c domain.Contract) (float64, error) {
	sign := m.sign(c)
	return m.pathwise(c, func(sT float64) float64 {
		return sign * sT / m.Spot
	})
}

// Vega dS_T/dσ = S_T·(ln(S_T/S_0) - (r+σ²/2)T)/σ
func (m GBMModel) Vega(c domain.Contract) (float64, error) {
	sign := m.sign(c)
	return m.pathwise(c, func(sT float64) float64 {
		return sign * sT * (math.Log(sT/m.Spot) - (m.Rate+0.5*m.Vol*m.Vol)*c.Maturity) / m.Vol
	})
}

// Rho 贴现与漂移两项合并后为 K·T
func (m GBMModel) Rho(c domain.Contract) (float64, error) {
	sign := m.sign(c)
	return m.pathwise(c, func(float64) float64 {
		return sign * c.Strike * c.Maturity
	})
}

// Param 读取模型参数
func (m GBMModel) Param(p domain.Parameter) (float64, error) {
	switch p {
	case domain.ParamSpot:
		return m.Spot, nil
	case domain.ParamVolatility:
		return m.Vol, nil
	case domain.ParamRate:
		return m.Rate, nil
	}
	return 0, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.Name())
}

// WithParam 返回修改参数后的副本
func (m GBMModel) WithParam(p domain.Parameter, v float64) (domain.Model, error) {
	switch p {
	case domain.ParamSpot:
		m.Spot = v
	case domain.ParamVolatility:
		m.Vol = v
	case domain.ParamRate:
		m.Rate = v
	default:
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.Name())
	}
	return m, nil
}
