package domain

// Parameter 模型上可扰动的参数
type Parameter string

const (
	ParamSpot       Parameter = "spot"
	ParamVolatility Parameter = "vol"
	ParamRate       Parameter = "rate"
)

// Model 定价模型
type Model interface {
	Name() string
	Price(c Contract) (float64, error)
}

// Perturbable 支持按参数生成副本的模型
// WithParam 必须返回独立副本，不得修改接收者。
type Perturbable interface {
	Model
	Param(p Parameter) (float64, error)
	WithParam(p Parameter, v float64) (Model, error)
}

// Resolver 在扰动前固定模型的离散化选择
// 例如自适应树模型会固定最终的步数与格式，保证每次重定价使用同一网格。
type Resolver interface {
	Resolve(c Contract) (Model, error)
}

// 闭式敏感度。合约不受支持时返回 ErrUnsupportedContract，调用方回退到有限差分。

type DeltaProvider interface {
	Delta(c Contract) (float64, error)
}

type GammaProvider interface {
	Gamma(c Contract) (float64, error)
}

type VegaProvider interface {
	Vega(c Contract) (float64, error)
}

type ThetaProvider interface {
	Theta(c Contract) (float64, error)
}

type RhoProvider interface {
	Rho(c Contract) (float64, error)
}
