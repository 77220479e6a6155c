package montecarlo

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// HestonModel Heston 随机波动率模型
// 方差过程为均值回复平方根过程，每步使用前截断到 0 (full truncation)。
type HestonModel struct {
	Spot  float64
	Rate  float64
	V0    float64 // 初始方差
	Kappa float64 // 均值回复速度
	Theta float64 // 长期方差
	Xi    float64 // 方差的波动率
	Rho   float64 // 两个布朗运动的相关系数
	Sim   SimulationConfig
}

// NewHestonModel 创建 Heston 模型
func NewHestonModel(spot, rate, v0, kappa, theta, xi, rho float64, sim SimulationConfig) (HestonModel, error) {
	m := HestonModel{Spot: spot, Rate: rate, V0: v0, Kappa: kappa, Theta: theta, Xi: xi, Rho: rho, Sim: sim}
	if err := m.validate(); err != nil {
		return HestonModel{}, err
	}
	return m, nil
}

func (m HestonModel) validate() error {
	switch {
	case !(m.Spot > 0):
		return fmt.Errorf("%w: spot must be positive, got %v", domain.ErrInvalidModel, m.Spot)
	case m.V0 < 0 || m.Theta < 0:
		return fmt.Errorf("%w: variance must be non-negative", domain.ErrInvalidModel)
	case m.Kappa < 0 || m.Xi < 0:
		return fmt.Errorf("%w: kappa and xi must be non-negative", domain.ErrInvalidModel)
	case m.Rho < -1 || m.Rho > 1:
		return fmt.Errorf("%w: rho must lie in [-1,1], got %v", domain.ErrInvalidModel, m.Rho)
	}
	return m.Sim.Validate()
}

func (m HestonModel) Name() string { return "Heston" }

func (m HestonModel) String() string {
	return fmt.Sprintf("Heston(spot=%v, rate=%v, v0=%v, kappa=%v, theta=%v, xi=%v, rho=%v)",
		m.Spot, m.Rate, m.V0, m.Kappa, m.Theta, m.Xi, m.Rho)
}

// Simulate 生成价格与方差路径
func (m HestonModel) Simulate(maturity float64) (*Ensemble, error) {
	steps, paths := m.Sim.Steps, m.Sim.Paths
	dt := maturity / float64(steps)
	rng := rand.New(newSource(m.Sim.Seed))
	corr := math.Sqrt(1 - m.Rho*m.Rho)
	ens := newEnsemble(steps, paths, dt, true)

	for p := 0; p < paths; p++ {
		s, v := m.Spot, m.V0
		ens.prices[ens.index(0, p)] = s
		ens.variance[ens.index(0, p)] = v
		for t := 1; t <= steps; t++ {
			z1 := rng.NormFloat64()
			w2 := m.Rho*z1 + corr*rng.NormFloat64()
			vp := max(v, 0)
			sd := math.Sqrt(vp * dt)
			s *= math.Exp((m.Rate-0.5*vp)*dt + sd*z1)
			v = max(vp+m.Kappa*(m.Theta-vp)*dt+m.Xi*sd*w2, 0)
			ens.prices[ens.index(t, p)] = s
			ens.variance[ens.index(t, p)] = v
		}
	}
	return ens, nil
}

// Estimate 返回价格与标准误
func (m HestonModel) Estimate(c domain.Contract) (Estimate, error) {
	return price(m, c, m.Rate)
}

// Price 计算期权价格
func (m HestonModel) Price(c domain.Contract) (float64, error) {
	est, err := m.Estimate(c)
	return est.Price, err
}

// Param 读取模型参数，波动率为 sqrt(V0)
func (m HestonModel) Param(p domain.Parameter) (float64, error) {
	switch p {
	case domain.ParamSpot:
		return m.Spot, nil
	case domain.ParamVolatility:
		return math.Sqrt(m.V0), nil
	case domain.ParamRate:
		return m.Rate, nil
	}
	return 0, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.Name())
}

// WithParam 返回修改参数后的副本
func (m HestonModel) WithParam(p domain.Parameter, v float64) (domain.Model, error) {
	switch p {
	case domain.ParamSpot:
		m.Spot = v
	case domain.ParamVolatility:
		m.V0 = v * v
	case domain.ParamRate:
		m.Rate = v
	default:
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.Name())
	}
	return m, nil
}
