package sensitivity

import (
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// FiniteDifference 有限差分估计
//
//	delta, vega, rho: (P(p+h) - P(p-h)) / 2h
//	gamma:            (P(S+h) - 2P(S) + P(S-h)) / h²
//	theta:            -(P(T+h) - P(T-h)) / 2h，T <= h 时改用前向差分
func (e *Engine) FiniteDifference(m domain.Model, c domain.Contract, g Greek) (float64, error) {
	h := e.step
	switch g {
	case Delta:
		return e.central(m, c, domain.ParamSpot)
	case Vega:
		return e.central(m, c, domain.ParamVolatility)
	case Rho:
		return e.central(m, c, domain.ParamRate)
	case Gamma:
		up, err := shiftedPrice(m, c, domain.ParamSpot, h)
		if err != nil {
			return 0, err
		}
		down, err := shiftedPrice(m, c, domain.ParamSpot, -h)
		if err != nil {
			return 0, err
		}
		mid, err := m.Price(c)
		if err != nil {
			return 0, err
		}
		return (up - 2*mid + down) / (h * h), nil
	case Theta:
		up, err := m.Price(c.WithMaturity(c.Maturity + h))
		if err != nil {
			return 0, err
		}
		if c.Maturity <= h {
			mid, err := m.Price(c)
			if err != nil {
				return 0, err
			}
			return -(up - mid) / h, nil
		}
		down, err := m.Price(c.WithMaturity(c.Maturity - h))
		if err != nil {
			return 0, err
		}
		return -(up - down) / (2 * h), nil
	}
	return 0, fmt.Errorf("unknown greek %q", g)
}

func (e *Engine) central(m domain.Model, c domain.Contract, p domain.Parameter) (float64, error) {
	up, err := shiftedPrice(m, c, p, e.step)
	if err != nil {
		return 0, err
	}
	down, err := shiftedPrice(m, c, p, -e.step)
	if err != nil {
		return 0, err
	}
	return (up - down) / (2 * e.step), nil
}

// shiftedPrice 在参数偏移 shift 的模型副本上定价
func shiftedPrice(m domain.Model, c domain.Contract, p domain.Parameter, shift float64) (float64, error) {
	pm, ok := m.(domain.Perturbable)
	if !ok {
		return 0, fmt.Errorf("%w: %s cannot be perturbed", domain.ErrUnsupportedParameter, m.Name())
	}
	base, err := pm.Param(p)
	if err != nil {
		return 0, err
	}
	bumped, err := pm.WithParam(p, base+shift)
	if err != nil {
		return 0, err
	}
	return bumped.Price(c)
}
