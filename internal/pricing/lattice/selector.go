package lattice

import (
	"fmt"
	"math"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// SelectorConfig 格式选择策略
type SelectorConfig struct {
	Steps     int     // 初始步数
	MaxSteps  int     // 自适应加倍的上限
	Tolerance float64 // 相邻两次价格变化的收敛容差
	Adaptive  bool    // false 为严格模式
	Fallback  string  // 回退格式名称，空串表示不回退
}

// DefaultSelectorConfig 默认配置：自适应，Kamrad-Ritchken 回退
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Steps:     200,
		MaxSteps:  3200,
		Tolerance: 1e-3,
		Adaptive:  true,
		Fallback:  SchemeKamradRitchken,
	}
}

// Validate 校验配置
func (c SelectorConfig) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("%w: steps must be at least 1, got %d", domain.ErrInvalidModel, c.Steps)
	}
	if c.MaxSteps < c.Steps {
		return fmt.Errorf("%w: max_steps %d below steps %d", domain.ErrInvalidModel, c.MaxSteps, c.Steps)
	}
	if c.Adaptive && !(c.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %v", domain.ErrInvalidModel, c.Tolerance)
	}
	if c.Fallback != "" {
		if _, err := LookupScheme(c.Fallback); err != nil {
			return err
		}
	}
	return nil
}

// Outcome 一次选择与定价的结果
type Outcome struct {
	Price      float64
	Requested  string // 请求的格式
	Scheme     string // 实际使用的格式
	Steps      int
	Dt         float64
	Converged  bool
	Fallback   bool
	Reason     string  // 回退原因
	LastChange float64 // 最后一次加倍的价格变化
	Warnings   []domain.Warning
	Nodes      *Valuation // 最终网格的前两层节点
}

// Selector 自适应格式选择器
// 保证 Engine 只接收合法的格式参数。
type Selector struct {
	engine Engine
	vol    float64
	cfg    SelectorConfig
}

// NewSelector 创建选择器
func NewSelector(spot, rate, vol float64, cfg SelectorConfig) *Selector {
	return &Selector{engine: Engine{Spot: spot, Rate: rate}, vol: vol, cfg: cfg}
}

func (s *Selector) params(scheme Scheme, maturity float64, steps int) (SchemeParameters, float64) {
	dt := maturity / float64(steps)
	return scheme.Params(s.engine.Spot, s.engine.Rate, s.vol, dt), dt
}

// Price 选择合法格式并定价
// 严格模式：概率无效立即返回 InvalidSchemeError。
// 自适应模式：步数加倍直到概率合法，到达上限时替换为回退格式；
// 随后继续加倍直到价格变化小于容差，到达上限时告警并返回最后一次价格。
func (s *Selector) Price(c domain.Contract, scheme Scheme) (*Outcome, error) {
	out := &Outcome{Requested: scheme.Name, Scheme: scheme.Name}
	steps := s.cfg.Steps

	for {
		p, dt := s.params(scheme, c.Maturity, steps)
		failure := p.Validate()
		if failure == nil {
			break
		}
		invalid := &domain.InvalidSchemeError{Scheme: scheme.Name, Steps: steps, Dt: dt, Failure: failure.String()}
		if !s.cfg.Adaptive {
			return nil, invalid
		}
		if 2*steps <= s.cfg.MaxSteps {
			steps *= 2
			continue
		}
		if s.cfg.Fallback == "" || s.cfg.Fallback == scheme.Name {
			return nil, invalid
		}
		fallback, err := LookupScheme(s.cfg.Fallback)
		if err != nil {
			return nil, err
		}
		fp, _ := s.params(fallback, c.Maturity, steps)
		if ff := fp.Validate(); ff != nil {
			return nil, &domain.InvalidSchemeError{Scheme: fallback.Name, Steps: steps, Dt: dt, Failure: ff.String()}
		}
		out.Fallback = true
		out.Reason = invalid.Error()
		out.Warnings = append(out.Warnings, domain.Warning{
			Kind:    domain.WarningFallback,
			Message: fmt.Sprintf("%s substituted by %s at steps=%d: %s", scheme.Name, fallback.Name, steps, failure),
		})
		scheme = fallback
		break
	}

	p, dt := s.params(scheme, c.Maturity, steps)
	val, err := s.engine.Valuate(c, steps, scheme.Branching, p)
	if err != nil {
		return nil, err
	}
	out.Scheme, out.Steps, out.Dt, out.Price, out.Nodes = scheme.Name, steps, dt, val.Price, val
	if !s.cfg.Adaptive {
		out.Converged = true
		return out, nil
	}

	for 2*steps <= s.cfg.MaxSteps {
		next := 2 * steps
		np, ndt := s.params(scheme, c.Maturity, next)
		if np.Validate() != nil {
			break
		}
		nextVal, err := s.engine.Valuate(c, next, scheme.Branching, np)
		if err != nil {
			return nil, err
		}
		out.LastChange = math.Abs(nextVal.Price - out.Price)
		out.Steps, out.Dt, out.Price, out.Nodes = next, ndt, nextVal.Price, nextVal
		steps = next
		if out.LastChange < s.cfg.Tolerance {
			out.Converged = true
			return out, nil
		}
	}

	out.Warnings = append(out.Warnings, domain.Warning{
		Kind: domain.WarningConvergence,
		Message: fmt.Sprintf("%s reached steps=%d without |ΔP| < %g (last change %.3g)",
			scheme.Name, out.Steps, s.cfg.Tolerance, out.LastChange),
	})
	return out, nil
}
