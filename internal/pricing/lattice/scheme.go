// Package lattice 树方法定价：离散化格式库、重组价格树、逆向归纳引擎与自适应格式选择。
package lattice

import (
	"fmt"
	"math"
	"sort"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// Branching 每个节点的分支数
type Branching int

const (
	Binomial  Branching = 2
	Trinomial Branching = 3
)

// probabilityTolerance 概率越界与求和的容许误差
const probabilityTolerance = 1e-12

// SchemeParameters 单步的移动乘子与风险中性概率
// 二叉树只使用 U、D、Pu、Pd，Pm 恒为 0。
type SchemeParameters struct {
	U, D, M    float64
	Pu, Pm, Pd float64
}

// ValidationFailure 概率校验失败的描述
type ValidationFailure struct {
	Reason     string
	Pu, Pm, Pd float64
}

func (f ValidationFailure) String() string {
	return fmt.Sprintf("%s (pu=%.6g, pm=%.6g, pd=%.6g)", f.Reason, f.Pu, f.Pm, f.Pd)
}

// Validate 校验概率是否构成合法分布
// 合法时返回 nil。
func (p SchemeParameters) Validate() *ValidationFailure {
	fail := func(reason string) *ValidationFailure {
		return &ValidationFailure{Reason: reason, Pu: p.Pu, Pm: p.Pm, Pd: p.Pd}
	}
	for _, v := range []float64{p.U, p.D, p.M, p.Pu, p.Pm, p.Pd} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fail("non-finite parameter")
		}
	}
	for _, q := range []float64{p.Pu, p.Pm, p.Pd} {
		if q < -probabilityTolerance || q > 1+probabilityTolerance {
			return fail("probability outside [0,1]")
		}
	}
	if math.Abs(p.Pu+p.Pm+p.Pd-1) > 1e-9 {
		return fail("probabilities do not sum to 1")
	}
	return nil
}

// Scheme 命名的离散化格式
// Params 为纯函数，只依赖 (spot, rate, vol, dt)。
type Scheme struct {
	Name      string
	Branching Branching
	Params    func(spot, rate, vol, dt float64) SchemeParameters
}

const (
	SchemeBoyle             = "boyle"
	SchemeJarrowRudd        = "jarrow-rudd"
	SchemeTian              = "tian"
	SchemeKamradRitchken    = "kamrad-ritchken"
	SchemeCoxRossRubinstein = "cox-ross-rubinstein"
)

var (
	// Boyle 对称三叉树，固定概率 (1/6, 2/3, 1/6)，不匹配风险中性漂移，价格不收敛到解析解
	Boyle = Scheme{Name: SchemeBoyle, Branching: Trinomial, Params: boyleParams}
	// JarrowRudd 对称乘子，概率由前三阶矩求解
	JarrowRudd = Scheme{Name: SchemeJarrowRudd, Branching: Trinomial, Params: jarrowRuddParams}
	// Tian 以漂移修正的中间乘子为中心，概率由前三阶矩求解
	Tian = Scheme{Name: SchemeTian, Branching: Trinomial, Params: tianParams}
	// KamradRitchken 概率为指数项比值的平方，作为回退格式
	KamradRitchken = Scheme{Name: SchemeKamradRitchken, Branching: Trinomial, Params: kamradRitchkenParams}
	// CoxRossRubinstein 二叉树
	CoxRossRubinstein = Scheme{Name: SchemeCoxRossRubinstein, Branching: Binomial, Params: crrParams}
)

var schemes = map[string]Scheme{
	SchemeBoyle:             Boyle,
	SchemeJarrowRudd:        JarrowRudd,
	SchemeTian:              Tian,
	SchemeKamradRitchken:    KamradRitchken,
	SchemeCoxRossRubinstein: CoxRossRubinstein,
}

var schemeAliases = map[string]string{
	"jr":  SchemeJarrowRudd,
	"kr":  SchemeKamradRitchken,
	"crr": SchemeCoxRossRubinstein,
}

// SchemeNames 返回全部格式名称 (已排序)
func SchemeNames() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupScheme 按名称或别名查找格式
func LookupScheme(name string) (Scheme, error) {
	if canonical, ok := schemeAliases[name]; ok {
		name = canonical
	}
	s, ok := schemes[name]
	if !ok {
		return Scheme{}, &domain.UnknownNameError{Kind: "scheme", Name: name, Available: SchemeNames()}
	}
	return s, nil
}

func boyleParams(_, _, vol, dt float64) SchemeParameters {
	u := math.Exp(vol * math.Sqrt(2*dt))
	return SchemeParameters{U: u, D: 1 / u, M: 1, Pu: 1.0 / 6, Pm: 2.0 / 3, Pd: 1.0 / 6}
}

func jarrowRuddParams(_, rate, vol, dt float64) SchemeParameters {
	u := math.Exp(vol * math.Sqrt(3*dt))
	return momentMatched(u, 1/u, 1, rate, vol, dt)
}

func tianParams(_, rate, vol, dt float64) SchemeParameters {
	m := math.Exp(rate*dt - 0.5*vol*vol*dt)
	s := math.Exp(vol * math.Sqrt(3*dt))
	return momentMatched(m*s, m/s, m, rate, vol, dt)
}

// momentMatched 给定 (u, d, m)，求解使单步总和、一阶矩 e^{r dt}、二阶矩 e^{(2r+σ²)dt} 匹配的概率
func momentMatched(u, d, m, rate, vol, dt float64) SchemeParameters {
	m1 := math.Exp(rate * dt)
	m2 := math.Exp((2*rate + vol*vol) * dt)
	pu := (m2 - (m+d)*m1 + m*d) / ((u - m) * (u - d))
	pd := (m2 - (u+m)*m1 + u*m) / ((d - u) * (d - m))
	return SchemeParameters{U: u, D: d, M: m, Pu: pu, Pm: 1 - pu - pd, Pd: pd}
}

func kamradRitchkenParams(_, rate, vol, dt float64) SchemeParameters {
	u := math.Exp(vol * math.Sqrt(2*dt))
	a := math.Exp(vol * math.Sqrt(dt/2))
	b := math.Exp(-vol * math.Sqrt(dt/2))
	x := math.Exp(rate * dt / 2)
	pu := math.Pow((x-b)/(a-b), 2)
	pd := math.Pow((a-x)/(a-b), 2)
	return SchemeParameters{U: u, D: 1 / u, M: 1, Pu: pu, Pm: 1 - pu - pd, Pd: pd}
}

func crrParams(_, rate, vol, dt float64) SchemeParameters {
	u := math.Exp(vol * math.Sqrt(dt))
	d := 1 / u
	q := (math.Exp(rate*dt) - d) / (u - d)
	return SchemeParameters{U: u, D: d, M: 1, Pu: q, Pd: 1 - q}
}
