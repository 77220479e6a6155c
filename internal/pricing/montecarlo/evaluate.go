package montecarlo

import (
	"fmt"
	"math"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Estimate 蒙特卡洛估计值与标准误
type Estimate struct {
	Price    float64
	StdError float64
}

// Evaluate 对每条路径计算收益并折现样本均值
// 到期收益型合约只读取到期价格，路径型合约读取整条监测路径。
func Evaluate(e *Ensemble, c domain.Contract, rate float64) (Estimate, error) {
	var sum, sumSq float64
	var buf []float64
	for p := 0; p < e.Paths; p++ {
		var payoff float64
		if c.Kind() == domain.PayoffPath {
			buf = e.Path(p, buf)
			payoff = c.PathPayoff(buf)
		} else {
			payoff = c.Payoff(e.Terminal(p))
		}
		sum += payoff
		sumSq += payoff * payoff
	}

	n := float64(e.Paths)
	mean := sum / n
	variance := max(sumSq/n-mean*mean, 0)
	df := math.Exp(-rate * c.Maturity)
	est := Estimate{Price: df * mean, StdError: df * math.Sqrt(variance/n)}
	if math.IsNaN(est.Price) || math.IsInf(est.Price, 0) {
		return Estimate{}, fmt.Errorf("%w: monte carlo price %v", domain.ErrNumerical, est.Price)
	}
	return est, nil
}

// price 校验合约、模拟并求值，可提前行权的合约走 Longstaff-Schwartz
func price(sim Simulator, c domain.Contract, rate float64) (Estimate, error) {
	if err := c.Validate(); err != nil {
		return Estimate{}, err
	}
	ens, err := sim.Simulate(c.Maturity)
	if err != nil {
		return Estimate{}, err
	}
	if c.EarlyExercise() {
		return EvaluateAmerican(ens, c, rate)
	}
	return Evaluate(ens, c, rate)
}
