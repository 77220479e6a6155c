package montecarlo

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// MertonModel Merton 跳跃扩散模型
// 跳跃次数服从 Poisson(λ·dt)，跳跃幅度对数正态 N(MuJ, SigmaJ²)，漂移项扣除补偿 λ(e^{MuJ+SigmaJ²/2}-1)。
type MertonModel struct {
	Spot   float64
	Rate   float64
	Vol    float64
	Lambda float64 // 年化跳跃强度
	MuJ    float64 // 对数跳跃幅度均值
	SigmaJ float64 // 对数跳跃幅度标准差
	Sim    SimulationConfig
}

// NewMertonModel 创建跳跃扩散模型
func NewMertonModel(spot, rate, vol, lambda, muJ, sigmaJ float64, sim SimulationConfig) (MertonModel, error) {
	m := MertonModel{Spot: spot, Rate: rate, Vol: vol, Lambda: lambda, MuJ: muJ, SigmaJ: sigmaJ, Sim: sim}
	if err := m.validate(); err != nil {
		return MertonModel{}, err
	}
	return m, nil
}

func (m MertonModel) validate() error {
	switch {
	case !(m.Spot > 0):
		return fmt.Errorf("%w: spot must be positive, got %v", domain.ErrInvalidModel, m.Spot)
	case m.Vol < 0:
		return fmt.Errorf("%w: vol must be non-negative, got %v", domain.ErrInvalidModel, m.Vol)
	case m.Lambda < 0 || m.SigmaJ < 0:
		return fmt.Errorf("%w: lambda and sigma_j must be non-negative", domain.ErrInvalidModel)
	}
	return m.Sim.Validate()
}

func (m MertonModel) Name() string { return "MertonJumpDiffusion" }

func (m MertonModel) String() string {
	return fmt.Sprintf("MertonJumpDiffusion(spot=%v, rate=%v, vol=%v, lambda=%v, mu_j=%v, sigma_j=%v)",
		m.Spot, m.Rate, m.Vol, m.Lambda, m.MuJ, m.SigmaJ)
}

// Compensator 跳跃补偿项 λ(e^{MuJ+SigmaJ²/2}-1)
func (m MertonModel) Compensator() float64 {
	return m.Lambda * (math.Exp(m.MuJ+0.5*m.SigmaJ*m.SigmaJ) - 1)
}

// Simulate 生成价格路径
func (m MertonModel) Simulate(maturity float64) (*Ensemble, error) {
	steps, paths := m.Sim.Steps, m.Sim.Paths
	dt := maturity / float64(steps)
	src := newSource(m.Sim.Seed)
	rng := rand.New(src)
	jumps := distuv.Poisson{Lambda: m.Lambda * dt, Src: src}
	drift := (m.Rate - 0.5*m.Vol*m.Vol - m.Compensator()) * dt
	diffusion := m.Vol * math.Sqrt(dt)
	ens := newEnsemble(steps, paths, dt, false)

	for p := 0; p < paths; p++ {
		s := m.Spot
		ens.prices[ens.index(0, p)] = s
		for t := 1; t <= steps; t++ {
			logRet := drift + diffusion*rng.NormFloat64()
			if m.Lambda > 0 {
				if n := jumps.Rand(); n > 0 {
					logRet += m.MuJ*n + m.SigmaJ*math.Sqrt(n)*rng.NormFloat64()
				}
			}
			s *= math.Exp(logRet)
			ens.prices[ens.index(t, p)] = s
		}
	}
	return ens, nil
}

// Estimate 返回价格与标准误
func (m MertonModel) Estimate(c domain.Contract) (Estimate, error) {
	return price(m, c, m.Rate)
}

// Price 计算期权价格
func (m MertonModel) Price(c domain.Contract) (float64, error) {
	est, err := m.Estimate(c)
	return est.Price, err
}

// Param 读取模型参数
func (m MertonModel) Param(p domain.Parameter) (float64, error) {
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
func (m MertonModel) WithParam(p domain.Parameter, v float64) (domain.Model, error) {
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
