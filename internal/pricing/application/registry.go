package application

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/pkg/idgen"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/lattice"
	"github.com/wyfcoding/optionpricing/internal/pricing/montecarlo"
)

// ModelConstructor 按参数构造定价模型
type ModelConstructor func(p ModelParams) (domain.Model, error)

// ContractConstructor 按参数构造合约
type ContractConstructor func(p ContractParams) (domain.Contract, error)

// CreationRecord 一次按名称构造的记录
type CreationRecord struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// creationLogLimit 创建日志保留条数
const creationLogLimit = 256

// Registry 名称到构造函数的注册表
// 进程启动时构造一次并注入使用方，不使用全局状态。
type Registry struct {
	mu        sync.RWMutex
	models    map[string]ModelConstructor
	contracts map[string]ContractConstructor
	creations []CreationRecord
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		models:    make(map[string]ModelConstructor),
		contracts: make(map[string]ContractConstructor),
	}
}

// RegisterModel 注册模型构造函数
func (r *Registry) RegisterModel(name string, ctor ModelConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[name]; ok {
		return fmt.Errorf("model %q already registered", name)
	}
	r.models[name] = ctor
	return nil
}

// RegisterContract 注册合约构造函数
func (r *Registry) RegisterContract(name string, ctor ContractConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contracts[name]; ok {
		return fmt.Errorf("contract %q already registered", name)
	}
	r.contracts[name] = ctor
	return nil
}

// CreateModel 按名称构造模型，名称未知时返回全部可选名称
func (r *Registry) CreateModel(name string, p ModelParams) (domain.Model, error) {
	r.mu.RLock()
	ctor, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.UnknownNameError{Kind: "model", Name: name, Available: r.ListModels()}
	}
	m, err := ctor(p)
	if err != nil {
		return nil, fmt.Errorf("create model %s: %w", name, err)
	}
	r.record("model", name, fmt.Sprint(m))
	return m, nil
}

// CreateContract 按名称构造合约
func (r *Registry) CreateContract(name string, p ContractParams) (domain.Contract, error) {
	r.mu.RLock()
	ctor, ok := r.contracts[name]
	r.mu.RUnlock()
	if !ok {
		return domain.Contract{}, &domain.UnknownNameError{Kind: "contract", Name: name, Available: r.ListContracts()}
	}
	c, err := ctor(p)
	if err != nil {
		return domain.Contract{}, fmt.Errorf("create contract %s: %w", name, err)
	}
	r.record("contract", name, c.Describe())
	return c, nil
}

// newID 雪花算法 ID 的十进制字符串
func newID() string {
	return strconv.FormatUint(idgen.GenID(), 10)
}

func (r *Registry) record(kind, name, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creations = append(r.creations, CreationRecord{
		ID:          newID(),
		Kind:        kind,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	})
	if over := len(r.creations) - creationLogLimit; over > 0 {
		r.creations = append(r.creations[:0:0], r.creations[over:]...)
	}
}

// ListModels 已注册的模型名称 (已排序)
func (r *Registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.models)
}

// ListContracts 已注册的合约名称 (已排序)
func (r *Registry) ListContracts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.contracts)
}

// RecentCreations 最近 n 条构造记录，按时间先后排列
func (r *Registry) RecentCreations(n int) []CreationRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.creations) {
		n = len(r.creations)
	}
	out := make([]CreationRecord, n)
	copy(out, r.creations[len(r.creations)-n:])
	return out
}

// Describe 列出全部模型与合约
func (r *Registry) Describe() string {
	var b strings.Builder
	b.WriteString("Models:\n")
	for _, name := range r.ListModels() {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	b.WriteString("Contracts:\n")
	for _, name := range r.ListContracts() {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EngineSettings 默认的离散化与模拟参数
type EngineSettings struct {
	Scheme     string
	Lattice    lattice.SelectorConfig
	Simulation montecarlo.SimulationConfig
}

// NewDefaultRegistry 创建注册了全部内置模型与合约的注册表
func NewDefaultRegistry(settings EngineSettings) (*Registry, error) {
	r := NewRegistry()
	if err := RegisterDefaults(r, settings); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterDefaults 注册内置模型与合约，名称已存在时返回错误
func RegisterDefaults(r *Registry, settings EngineSettings) error {
	models := map[string]ModelConstructor{
		"BlackScholes": func(p ModelParams) (domain.Model, error) {
			return domain.NewBlackScholesModel(p.Spot, p.Rate, p.Vol)
		},
		lattice.BinomialTreeName: func(p ModelParams) (domain.Model, error) {
			return lattice.NewBinomialTree(p.Spot, p.Rate, p.Vol, settings.Lattice)
		},
		lattice.TrinomialTreeName: func(p ModelParams) (domain.Model, error) {
			scheme := p.Scheme
			if scheme == "" {
				scheme = settings.Scheme
			}
			return lattice.NewTrinomialTree(p.Spot, p.Rate, p.Vol, scheme, settings.Lattice)
		},
		"Heston": func(p ModelParams) (domain.Model, error) {
			return montecarlo.NewHestonModel(p.Spot, p.Rate, p.V0, p.Kappa, p.Theta, p.Xi, p.Rho, settings.Simulation)
		},
		"MertonJumpDiffusion": func(p ModelParams) (domain.Model, error) {
			return montecarlo.NewMertonModel(p.Spot, p.Rate, p.Vol, p.Lambda, p.MuJ, p.SigmaJ, settings.Simulation)
		},
		"MonteCarloGBM": func(p ModelParams) (domain.Model, error) {
			return montecarlo.NewGBMModel(p.Spot, p.Rate, p.Vol, settings.Simulation)
		},
	}
	for _, name := range sortedKeys(models) {
		if err := r.RegisterModel(name, models[name]); err != nil {
			return err
		}
	}

	contracts := map[string]domain.OptionStyle{
		"European": domain.StyleEuropean,
		"American": domain.StyleAmerican,
		"Asian":    domain.StyleAsian,
		"Digital":  domain.StyleDigital,
	}
	for _, name := range sortedKeys(contracts) {
		style := contracts[name]
		err := r.RegisterContract(name, func(p ContractParams) (domain.Contract, error) {
			var opts []domain.ContractOption
			if style == domain.StyleDigital && p.Payout > 0 {
				opts = append(opts, domain.WithPayout(p.Payout))
			}
			return domain.NewContract(style, p.Strike, p.Maturity, p.IsCall, opts...)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
