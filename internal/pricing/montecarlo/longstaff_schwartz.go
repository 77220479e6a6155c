package montecarlo

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// lsmBasisDegree 回归基函数 1, x, x² 的最高次数
const lsmBasisDegree = 2

// EvaluateAmerican Longstaff-Schwartz 最小二乘蒙特卡洛
// 自到期日向前，在每个监测日对实值路径回归继续持有价值，立即行权收益更高时行权。
// 回归变量为 S/K，避免高次项数值溢出。
func EvaluateAmerican(e *Ensemble, c domain.Contract, rate float64) (Estimate, error) {
	disc := math.Exp(-rate * e.Dt)
	cash := make([]float64, e.Paths)
	for p := range cash {
		cash[p] = c.Payoff(e.Terminal(p))
	}

	itm := make([]int, 0, e.Paths)
	for t := e.Steps - 1; t >= 1; t-- {
		for p := range cash {
			cash[p] *= disc
		}
		itm = itm[:0]
		for p := 0; p < e.Paths; p++ {
			if c.Payoff(e.At(t, p)) > 0 {
				itm = append(itm, p)
			}
		}
		if len(itm) <= lsmBasisDegree {
			continue
		}
		beta, err := regress(e, t, itm, cash, c.Strike)
		if err != nil {
			continue
		}
		for _, p := range itm {
			s := e.At(t, p)
			if exercise := c.Payoff(s); exercise > continuation(beta, s/c.Strike) {
				cash[p] = exercise
			}
		}
	}

	var sum, sumSq float64
	for p := range cash {
		v := cash[p] * disc
		sum += v
		sumSq += v * v
	}
	n := float64(e.Paths)
	mean := sum / n
	est := Estimate{Price: mean, StdError: math.Sqrt(max(sumSq/n-mean*mean, 0) / n)}
	if now := c.Payoff(e.At(0, 0)); now > est.Price {
		est = Estimate{Price: now}
	}
	if math.IsNaN(est.Price) || math.IsInf(est.Price, 0) {
		return Estimate{}, fmt.Errorf("%w: longstaff-schwartz price %v", domain.ErrNumerical, est.Price)
	}
	return est, nil
}

// regress 以 t 时刻实值路径的 S/K 为自变量，对折现后的未来现金流做最小二乘
func regress(e *Ensemble, t int, itm []int, cash []float64, strike float64) ([]float64, error) {
	cols := lsmBasisDegree + 1
	x := mat.NewDense(len(itm), cols, nil)
	y := mat.NewVecDense(len(itm), nil)
	for i, p := range itm {
		s := e.At(t, p) / strike
		v := 1.0
		for k := 0; k < cols; k++ {
			x.Set(i, k, v)
			v *= s
		}
		y.SetVec(i, cash[p])
	}

	var beta mat.VecDense
	if err := beta.SolveVec(x, y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	return beta.RawVector().Data, nil
}

func continuation(beta []float64, s float64) float64 {
	var v, pow float64 = 0, 1
	for _, b := range beta {
		v += b * pow
		pow *= s
	}
	return v
}
