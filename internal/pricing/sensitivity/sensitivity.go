// Package sensitivity 通用有限差分希腊字母计算。
// 每次重定价都在模型或合约的副本上重新定价，模型若提供闭式敏感度则优先使用。
package sensitivity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Greek 希腊字母名称
type Greek string

const (
	Delta Greek = "delta"
	Gamma Greek = "gamma"
	Vega  Greek = "vega"
	Theta Greek = "theta"
	Rho   Greek = "rho"
)

// AllGreeks 计算顺序
var AllGreeks = []Greek{Delta, Gamma, Vega, Theta, Rho}

// Method 估计方法
type Method string

const (
	MethodClosedForm       Method = "closed-form"
	MethodFiniteDifference Method = "finite-difference"
)

// DefaultStep 默认扰动步长
const DefaultStep = 1e-4

// Result 五个希腊字母及各自的估计方法
type Result struct {
	Greeks  domain.Greeks
	Methods map[Greek]Method
}

// Engine 敏感度引擎
type Engine struct {
	step     float64
	parallel bool
}

// Option 引擎选项
type Option func(*Engine)

// WithStep 设置扰动步长 h
func WithStep(h float64) Option {
	return func(e *Engine) {
		if h > 0 {
			e.step = h
		}
	}
}

// WithParallel 并行计算五个希腊字母
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.parallel = parallel
	}
}

// NewEngine 创建敏感度引擎
func NewEngine(opts ...Option) *Engine {
	e := &Engine{step: DefaultStep}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step 当前扰动步长
func (e *Engine) Step() float64 {
	return e.step
}

// Compute 计算全部希腊字母
// 实现 Resolver 的模型先固定离散化，保证所有重定价在同一网格上进行。
func (e *Engine) Compute(ctx context.Context, m domain.Model, c domain.Contract) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if r, ok := m.(domain.Resolver); ok {
		resolved, err := r.Resolve(c)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", m.Name(), err)
		}
		m = resolved
	}

	values := make([]float64, len(AllGreeks))
	methods := make([]Method, len(AllGreeks))
	compute := func(i int) error {
		v, method, err := e.Estimate(m, c, AllGreeks[i])
		if err != nil {
			return fmt.Errorf("%s: %w", AllGreeks[i], err)
		}
		values[i], methods[i] = v, method
		return nil
	}

	if e.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range AllGreeks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return compute(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range AllGreeks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := compute(i); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{
		Greeks: domain.Greeks{
			Delta: values[0],
			Gamma: values[1],
			Vega:  values[2],
			Theta: values[3],
			Rho:   values[4],
		},
		Methods: make(map[Greek]Method, len(AllGreeks)),
	}
	for i, g := range AllGreeks {
		res.Methods[g] = methods[i]
	}
	return res, nil
}

// Estimate 计算单个希腊字母，闭式优先，不支持时回退到有限差分
func (e *Engine) Estimate(m domain.Model, c domain.Contract, g Greek) (float64, Method, error) {
	v, ok, err := closedForm(m, c, g)
	if err != nil {
		return 0, "", err
	}
	if ok {
		return v, MethodClosedForm, nil
	}
	v, err = e.FiniteDifference(m, c, g)
	if err != nil {
		return 0, "", err
	}
	return v, MethodFiniteDifference, nil
}

func closedForm(m domain.Model, c domain.Contract, g Greek) (float64, bool, error) {
	var fn func(domain.Contract) (float64, error)
	switch g {
	case Delta:
		if p, ok := m.(domain.DeltaProvider); ok {
			fn = p.Delta
		}
	case Gamma:
		if p, ok := m.(domain.GammaProvider); ok {
			fn = p.Gamma
		}
	case Vega:
		if p, ok := m.(domain.VegaProvider); ok {
			fn = p.Vega
		}
	case Theta:
		if p, ok := m.(domain.ThetaProvider); ok {
			fn = p.Theta
		}
	case Rho:
		if p, ok := m.(domain.RhoProvider); ok {
			fn = p.Rho
		}
	}
	if fn == nil {
		return 0, false, nil
	}
	v, err := fn(c)
	if errors.Is(err, domain.ErrUnsupportedContract) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
