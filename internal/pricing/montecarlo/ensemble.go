// Package montecarlo 路径模拟定价：Heston 随机波动率、Merton 跳跃扩散与几何布朗运动。
package montecarlo

import (
	"fmt"
	"math/rand/v2"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// SimulationConfig 路径模拟参数
type SimulationConfig struct {
	Steps int    // 每条路径的时间步数
	Paths int    // 路径数
	Seed  uint64 // 固定随机种子，相同配置给出完全相同的价格
}

// DefaultSimulationConfig 默认模拟参数
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{Steps: 100, Paths: 20000, Seed: 42}
}

// Validate 校验模拟参数
func (c SimulationConfig) Validate() error {
	if c.Steps < 1 {
		return fmt.Errorf("%w: steps must be at least 1, got %d", domain.ErrInvalidModel, c.Steps)
	}
	if c.Paths < 1 {
		return fmt.Errorf("%w: paths must be at least 1, got %d", domain.ErrInvalidModel, c.Paths)
	}
	return nil
}

// newSource 由种子构造 PCG 随机源
func newSource(seed uint64) *rand.PCG {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// Ensemble 模拟路径集合
// 按时间步行优先存储，第 t 行为所有路径在 t·dt 的价格。
type Ensemble struct {
	Steps    int
	Paths    int
	Dt       float64
	prices   []float64
	variance []float64
}

func newEnsemble(steps, paths int, dt float64, withVariance bool) *Ensemble {
	e := &Ensemble{
		Steps:  steps,
		Paths:  paths,
		Dt:     dt,
		prices: make([]float64, (steps+1)*paths),
	}
	if withVariance {
		e.variance = make([]float64, (steps+1)*paths)
	}
	return e
}

func (e *Ensemble) index(t, path int) int {
	return t*e.Paths + path
}

// At 第 path 条路径在第 t 步的价格
func (e *Ensemble) At(t, path int) float64 {
	return e.prices[e.index(t, path)]
}

// VarianceAt 第 path 条路径在第 t 步的方差，无方差过程时返回 0
func (e *Ensemble) VarianceAt(t, path int) float64 {
	if e.variance == nil {
		return 0
	}
	return e.variance[e.index(t, path)]
}

// HasVariance 是否记录了方差过程
func (e *Ensemble) HasVariance() bool {
	return e.variance != nil
}

// Terminal 第 path 条路径的到期价格
func (e *Ensemble) Terminal(path int) float64 {
	return e.At(e.Steps, path)
}

// Path 第 path 条路径在监测日 t=1..Steps 的价格
// 结果追加到 buf[:0]，传入上一次的返回值可复用缓冲区。
func (e *Ensemble) Path(path int, buf []float64) []float64 {
	buf = buf[:0]
	for t := 1; t <= e.Steps; t++ {
		buf = append(buf, e.At(t, path))
	}
	return buf
}

// Simulator 路径模拟器
type Simulator interface {
	Simulate(maturity float64) (*Ensemble, error)
}
