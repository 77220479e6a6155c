package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidContract      = errors.New("invalid contract")
	ErrInvalidModel         = errors.New("invalid model configuration")
	ErrUnsupportedContract  = errors.New("contract not supported by model")
	ErrUnsupportedParameter = errors.New("parameter not supported by model")
	ErrNumerical            = errors.New("non-finite numerical result")
)

// UnknownNameError 名称查找失败 (格式、模型、合约)，附带全部可选名称
type UnknownNameError struct {
	Kind      string
	Name      string
	Available []string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("%s %q not found. Available: [%s]", e.Kind, e.Name, strings.Join(e.Available, ", "))
}

// InvalidSchemeError 离散化格式在给定步长下概率无效
// 严格模式下直接返回；自适应模式在步数上限内无法修复且无可用回退格式时返回。
type InvalidSchemeError struct {
	Scheme  string
	Steps   int
	Dt      float64
	Failure string
}

func (e *InvalidSchemeError) Error() string {
	return fmt.Sprintf("scheme %s invalid at steps=%d dt=%.6g: %s", e.Scheme, e.Steps, e.Dt, e.Failure)
}
