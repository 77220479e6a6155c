package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/lattice"
	"github.com/wyfcoding/optionpricing/internal/pricing/montecarlo"
	"github.com/wyfcoding/optionpricing/internal/pricing/sensitivity"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
)

// DefaultPrecision 结果保留的小数位数
const DefaultPrecision int32 = 6

// latticeEvaluator 可报告格式选择过程的树模型
type latticeEvaluator interface {
	Evaluate(c domain.Contract) (*lattice.Outcome, error)
}

// simulationEstimator 可报告标准误差的蒙特卡洛模型
type simulationEstimator interface {
	Estimate(c domain.Contract) (montecarlo.Estimate, error)
}

// PricingCommandService 处理定价相关的命令操作
type PricingCommandService struct {
	registry  *Registry
	greeks    *sensitivity.Engine
	publisher domain.EventPublisher
	collector metrics.MetricsCollector
	tolerance float64
	precision int32
}

// CommandOption 命令服务选项
type CommandOption func(*PricingCommandService)

// WithPublisher 设置事件发布者
func WithPublisher(p domain.EventPublisher) CommandOption {
	return func(s *PricingCommandService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithCollector 设置指标采集器
func WithCollector(c metrics.MetricsCollector) CommandOption {
	return func(s *PricingCommandService) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithPrecision 设置结果小数位数
func WithPrecision(places int32) CommandOption {
	return func(s *PricingCommandService) {
		if places >= 0 {
			s.precision = places
		}
	}
}

// WithTolerance 记录在收敛告警事件中的容差
func WithTolerance(tol float64) CommandOption {
	return func(s *PricingCommandService) {
		s.tolerance = tol
	}
}

// NewPricingCommandService 创建新的 PricingCommandService 实例
func NewPricingCommandService(registry *Registry, greeks *sensitivity.Engine, opts ...CommandOption) *PricingCommandService {
	if greeks == nil {
		greeks = sensitivity.NewEngine()
	}
	s := &PricingCommandService{
		registry:  registry,
		greeks:    greeks,
		publisher: domain.NopPublisher{},
		collector: metrics.NopCollector{},
		precision: DefaultPrecision,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriceOption 期权定价
func (s *PricingCommandService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	start := time.Now()
	cmd = cmd.WithDefaults()

	result, err := s.priceOption(ctx, cmd)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		s.collector.RecordPricing(cmd.Model, "error", elapsed)
		logger.Error(ctx, "pricing failed", "model", cmd.Model, "contract", cmd.Contract, "error", err)
		if perr := s.publisher.PublishPricingError(domain.PricingErrorEvent{
			PricingModel: cmd.Model,
			Contract:     cmd.Contract,
			Error:        err.Error(),
			OccurredOn:   time.Now(),
		}); perr != nil {
			logger.Warn(ctx, "publish pricing error event failed", "error", perr)
		}
		return nil, err
	}

	s.collector.RecordPricing(cmd.Model, "success", elapsed)
	logger.Info(ctx, "option priced",
		"id", result.ID,
		"model", result.PricingModel,
		"contract", result.Contract,
		"price", result.OptionPrice.String(),
		"duration", time.Since(start))

	if err := s.publisher.PublishOptionPriced(domain.OptionPricedEvent{
		ResultID:     result.ID,
		PricingModel: result.PricingModel,
		Contract:     result.Contract,
		OptionPrice:  result.OptionPrice.InexactFloat64(),
		Scheme:       result.Scheme,
		Steps:        result.Steps,
		Duration:     elapsed,
		OccurredOn:   time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("publish option priced: %w", err)
	}
	return result, nil
}

func (s *PricingCommandService) priceOption(ctx context.Context, cmd PriceOptionCommand) (*domain.PricingResult, error) {
	model, err := s.registry.CreateModel(cmd.Model, cmd.ModelParams)
	if err != nil {
		return nil, err
	}
	contract, err := s.registry.CreateContract(cmd.Contract, cmd.ContractParams)
	if err != nil {
		return nil, err
	}

	result := &domain.PricingResult{
		ID:           newID(),
		PricingModel: fmt.Sprint(model),
		Contract:     contract.String(),
		CalculatedAt: time.Now(),
	}

	var price float64
	switch m := model.(type) {
	case latticeEvaluator:
		out, err := m.Evaluate(contract)
		if err != nil {
			return nil, err
		}
		price = out.Price
		result.Scheme, result.Steps, result.Warnings = out.Scheme, out.Steps, out.Warnings
		if err := s.reportOutcome(ctx, out); err != nil {
			return nil, err
		}
	case simulationEstimator:
		est, err := m.Estimate(contract)
		if err != nil {
			return nil, err
		}
		price = est.Price
		se, err := s.toDecimal("std_error", est.StdError)
		if err != nil {
			return nil, err
		}
		result.StdError = &se
	default:
		if price, err = model.Price(contract); err != nil {
			return nil, err
		}
	}
	if result.OptionPrice, err = s.toDecimal("price", price); err != nil {
		return nil, err
	}

	if !cmd.WithGreeks {
		return result, nil
	}
	res, err := s.greeks.Compute(ctx, model, contract)
	if err != nil {
		return nil, fmt.Errorf("greeks: %w", err)
	}
	if err := s.applyGreeks(result, res); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishGreeksCalculated(domain.GreeksCalculatedEvent{
		ResultID:     result.ID,
		PricingModel: result.PricingModel,
		Greeks:       res.Greeks,
		Methods:      result.GreekMethods,
		OccurredOn:   time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("publish greeks calculated: %w", err)
	}
	return result, nil
}

// reportOutcome 发布格式替换与收敛告警
func (s *PricingCommandService) reportOutcome(ctx context.Context, out *lattice.Outcome) error {
	if out.Fallback {
		if err := s.publisher.PublishSchemeFallback(domain.SchemeFallbackEvent{
			Requested:  out.Requested,
			Substitute: out.Scheme,
			Steps:      out.Steps,
			Dt:         out.Dt,
			Reason:     out.Reason,
			OccurredOn: time.Now(),
		}); err != nil {
			return fmt.Errorf("publish scheme fallback: %w", err)
		}
	}
	if !out.Converged {
		logger.Debug(ctx, "lattice not converged", "scheme", out.Scheme, "steps", out.Steps, "last_change", out.LastChange)
		if err := s.publisher.PublishConvergenceWarning(domain.ConvergenceWarningEvent{
			Scheme:     out.Scheme,
			Steps:      out.Steps,
			LastChange: out.LastChange,
			Tolerance:  s.tolerance,
			OccurredOn: time.Now(),
		}); err != nil {
			return fmt.Errorf("publish convergence warning: %w", err)
		}
	}
	return nil
}

func (s *PricingCommandService) applyGreeks(result *domain.PricingResult, res *sensitivity.Result) error {
	targets := map[sensitivity.Greek]**decimal.Decimal{
		sensitivity.Delta: &result.Delta,
		sensitivity.Gamma: &result.Gamma,
		sensitivity.Vega:  &result.Vega,
		sensitivity.Theta: &result.Theta,
		sensitivity.Rho:   &result.Rho,
	}
	values := map[sensitivity.Greek]float64{
		sensitivity.Delta: res.Greeks.Delta,
		sensitivity.Gamma: res.Greeks.Gamma,
		sensitivity.Vega:  res.Greeks.Vega,
		sensitivity.Theta: res.Greeks.Theta,
		sensitivity.Rho:   res.Greeks.Rho,
	}
	result.GreekMethods = make(map[string]string, len(sensitivity.AllGreeks))
	for _, g := range sensitivity.AllGreeks {
		d, err := s.toDecimal(string(g), values[g])
		if err != nil {
			return err
		}
		*targets[g] = &d
		result.GreekMethods[string(g)] = string(res.Methods[g])
	}
	return nil
}

// toDecimal 非有限值无法表示为 decimal
func (s *PricingCommandService) toDecimal(field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s=%v", domain.ErrNumerical, field, v)
	}
	return decimal.NewFromFloat(v).Round(s.precision), nil
}

// BatchPriceOptions 批量定价
// 单个合约失败不影响其余合约，失败原因按顺序记录在 Errors 中。
func (s *PricingCommandService) BatchPriceOptions(ctx context.Context, cmd BatchPriceOptionsCommand) (*BatchPricingResult, error) {
	if cmd.BatchID == "" {
		cmd.BatchID = uuid.NewString()
	}
	results := make([]*domain.PricingResult, 0, len(cmd.Contracts))
	var errs []string
	successCount := 0
	failureCount := 0
	totalTime := 0.0

	for i, contract := range cmd.Contracts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		contract = contract.WithDefaults()
		startTime := time.Now()
		result, err := s.PriceOption(ctx, contract)
		totalTime += time.Since(startTime).Seconds()

		if err != nil {
			failureCount++
			errs = append(errs, fmt.Sprintf("#%d %s/%s: %v", i, contract.Model, contract.Contract, err))
			continue
		}

		results = append(results, result)
		successCount++
	}

	avg := 0.0
	if len(cmd.Contracts) > 0 {
		avg = totalTime / float64(len(cmd.Contracts))
	}
	logger.Info(ctx, "batch priced", "batch_id", cmd.BatchID, "success", successCount, "failure", failureCount)

	return &BatchPricingResult{
		BatchID:      cmd.BatchID,
		Results:      results,
		Errors:       errs,
		SuccessCount: successCount,
		FailureCount: failureCount,
		AverageTime:  avg,
	}, nil
}

// IsInputError 错误是否源于调用方输入 (名称未知或参数非法)
func IsInputError(err error) bool {
	var unknown *domain.UnknownNameError
	return errors.As(err, &unknown) ||
		errors.Is(err, domain.ErrInvalidContract) ||
		errors.Is(err, domain.ErrInvalidModel) ||
		errors.Is(err, domain.ErrUnsupportedContract)
}
