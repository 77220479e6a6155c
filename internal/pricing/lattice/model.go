package lattice

import (
	"fmt"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

const (
	BinomialTreeName  = "BinomialTree"
	TrinomialTreeName = "TrinomialTree"
)

// TreeModel 树方法定价模型
// 值类型，WithParam 与 Resolve 均返回副本。
type TreeModel struct {
	Spot   float64
	Rate   float64
	Vol    float64
	Scheme Scheme
	Config SelectorConfig
	name   string
}

// NewBinomialTree 创建 CRR 二叉树模型
func NewBinomialTree(spot, rate, vol float64, cfg SelectorConfig) (TreeModel, error) {
	return newTreeModel(BinomialTreeName, spot, rate, vol, CoxRossRubinstein, cfg)
}

// NewTrinomialTree 创建三叉树模型，scheme 为格式名称或别名
func NewTrinomialTree(spot, rate, vol float64, scheme string, cfg SelectorConfig) (TreeModel, error) {
	s, err := LookupScheme(scheme)
	if err != nil {
		return TreeModel{}, err
	}
	if s.Branching != Trinomial {
		return TreeModel{}, fmt.Errorf("%w: scheme %s is not trinomial", domain.ErrInvalidModel, s.Name)
	}
	return newTreeModel(TrinomialTreeName, spot, rate, vol, s, cfg)
}

func newTreeModel(name string, spot, rate, vol float64, s Scheme, cfg SelectorConfig) (TreeModel, error) {
	if !(spot > 0) {
		return TreeModel{}, fmt.Errorf("%w: spot must be positive, got %v", domain.ErrInvalidModel, spot)
	}
	if !(vol > 0) {
		return TreeModel{}, fmt.Errorf("%w: vol must be positive, got %v", domain.ErrInvalidModel, vol)
	}
	if err := cfg.Validate(); err != nil {
		return TreeModel{}, err
	}
	return TreeModel{Spot: spot, Rate: rate, Vol: vol, Scheme: s, Config: cfg, name: name}, nil
}

func (m TreeModel) Name() string { return m.name }

func (m TreeModel) String() string {
	return fmt.Sprintf("%s(spot=%v, rate=%v, vol=%v, scheme=%s, steps=%d)",
		m.name, m.Spot, m.Rate, m.Vol, m.Scheme.Name, m.Config.Steps)
}

// Evaluate 定价并返回格式选择的全部诊断信息
func (m TreeModel) Evaluate(c domain.Contract) (*Outcome, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewSelector(m.Spot, m.Rate, m.Vol, m.Config).Price(c, m.Scheme)
}

// Price 计算期权价格
func (m TreeModel) Price(c domain.Contract) (float64, error) {
	out, err := m.Evaluate(c)
	if err != nil {
		return 0, err
	}
	return out.Price, nil
}

// Delta 由最终网格第一层节点计算
func (m TreeModel) Delta(c domain.Contract) (float64, error) {
	out, err := m.Evaluate(c)
	if err != nil {
		return 0, err
	}
	return out.Nodes.Delta()
}

// Gamma 由最终网格首个三节点层计算
// 固定网格上对 spot 做小扰动时价格关于 spot 分段线性，差分 gamma 不可用。
func (m TreeModel) Gamma(c domain.Contract) (float64, error) {
	out, err := m.Evaluate(c)
	if err != nil {
		return 0, err
	}
	return out.Nodes.Gamma()
}

// Resolve 固定自适应选择的最终格式与步数，返回严格模式副本
// 敏感度计算在同一网格上重新定价。
func (m TreeModel) Resolve(c domain.Contract) (domain.Model, error) {
	out, err := m.Evaluate(c)
	if err != nil {
		return nil, err
	}
	pinned := m
	pinned.Scheme = schemes[out.Scheme]
	pinned.Config = SelectorConfig{Steps: out.Steps, MaxSteps: out.Steps}
	return pinned, nil
}

// Param 读取模型参数
func (m TreeModel) Param(p domain.Parameter) (float64, error) {
	switch p {
	case domain.ParamSpot:
		return m.Spot, nil
	case domain.ParamVolatility:
		return m.Vol, nil
	case domain.ParamRate:
		return m.Rate, nil
	}
	return 0, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.name)
}

// WithParam 返回修改参数后的副本
func (m TreeModel) WithParam(p domain.Parameter, v float64) (domain.Model, error) {
	switch p {
	case domain.ParamSpot:
		m.Spot = v
	case domain.ParamVolatility:
		m.Vol = v
	case domain.ParamRate:
		m.Rate = v
	default:
		return nil, fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedParameter, p, m.name)
	}
	return m, nil
}
