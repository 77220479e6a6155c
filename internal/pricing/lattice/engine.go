package lattice

import (
	"fmt"
	"math"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Engine 逆向归纳定价引擎
// 不做概率校验，调用方 (Selector) 保证传入的参数合法。
type Engine struct {
	Spot float64
	Rate float64
}

// Valuation 一次逆向归纳的结果
// Spots[t] 与 Values[t] 为第 t 层 (t <= 2) 的节点价格与期权价值，供树上敏感度使用。
type Valuation struct {
	Price     float64
	Branching Branching
	Spots     [3][]float64
	Values    [3][]float64
}

// Price 在 steps 步的树上对合约定价
func (e Engine) Price(c domain.Contract, steps int, branching Branching, p SchemeParameters) (float64, error) {
	v, err := e.Valuate(c, steps, branching, p)
	if err != nil {
		return 0, err
	}
	return v.Price, nil
}

// Valuate 逆向归纳，逐层生成节点价格，只保留当前层与前两层
func (e Engine) Valuate(c domain.Contract, steps int, branching Branching, p SchemeParameters) (*Valuation, error) {
	if c.Kind() != domain.PayoffSpot {
		return nil, fmt.Errorf("%w: path payoff %s on lattice", domain.ErrUnsupportedContract, c.Style)
	}
	if steps < 1 {
		return nil, fmt.Errorf("%w: steps must be at least 1, got %d", domain.ErrInvalidModel, steps)
	}

	dt := c.Maturity / float64(steps)
	disc := math.Exp(-e.Rate * dt)
	out := &Valuation{Branching: branching}
	keep := func(t int, spots, values []float64) {
		if t < len(out.Spots) {
			out.Spots[t], out.Values[t] = spots, values
		}
	}

	terminal := Level(e.Spot, steps, branching, p)
	values := make([]float64, len(terminal))
	for j, s := range terminal {
		values[j] = c.Payoff(s)
	}
	keep(steps, terminal, values)

	early := c.EarlyExercise()
	for t := steps - 1; t >= 0; t-- {
		level := Level(e.Spot, t, branching, p)
		next := make([]float64, len(level))
		for j := range level {
			var cont float64
			if branching == Binomial {
				cont = p.Pu*child(values, j+1) + p.Pd*child(values, j)
			} else {
				cont = p.Pu*child(values, j+2) + p.Pm*child(values, j+1) + p.Pd*child(values, j)
			}
			cont *= disc
			if early {
				cont = max(cont, c.Payoff(level[j]))
			}
			next[j] = cont
		}
		values = next
		keep(t, level, values)
	}
	out.Price = values[0]
	return out, nil
}

// Delta 第一层节点的差商
func (v *Valuation) Delta() (float64, error) {
	spots, values := v.Spots[1], v.Values[1]
	if len(spots) < 2 {
		return 0, fmt.Errorf("%w: lattice delta needs at least 1 step", domain.ErrUnsupportedContract)
	}
	last := len(spots) - 1
	return (values[last] - values[0]) / (spots[last] - spots[0]), nil
}

// Gamma 首个三节点层的二阶差商：三叉树取第一层，二叉树取第二层
// 节点间距不等时按 2·(右斜率 - 左斜率)/(S₂ - S₀) 计算。
func (v *Valuation) Gamma() (float64, error) {
	t := 1
	if v.Branching == Binomial {
		t = 2
	}
	s, f := v.Spots[t], v.Values[t]
	if len(s) != 3 {
		return 0, fmt.Errorf("%w: lattice gamma needs at least %d steps", domain.ErrUnsupportedContract, t)
	}
	up := (f[2] - f[1]) / (s[2] - s[1])
	down := (f[1] - f[0]) / (s[1] - s[0])
	return 2 * (up - down) / (s[2] - s[0]), nil
}

// child 读取下一层节点值，越界时取最近的可用邻居
func child(values []float64, idx int) float64 {
	if idx < 0 {
		return values[0]
	}
	if idx >= len(values) {
		return values[len(values)-1]
	}
	return values[idx]
}
