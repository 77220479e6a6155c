package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/lattice"
	"github.com/wyfcoding/optionpricing/internal/pricing/sensitivity"
)

// recordingPublisher 记录已发布的事件类型
type recordingPublisher struct {
	mu        sync.Mutex
	types     []string
	fallbacks []domain.SchemeFallbackEvent
	errs      []domain.PricingErrorEvent
}

func (p *recordingPublisher) add(t string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, t)
}

func (p *recordingPublisher) PublishOptionPriced(domain.OptionPricedEvent) error {
	p.add(domain.OptionPricedEventType)
	return nil
}

func (p *recordingPublisher) PublishGreeksCalculated(domain.GreeksCalculatedEvent) error {
	p.add(domain.GreeksCalculatedEventType)
	return nil
}

func (p *recordingPublisher) PublishSchemeFallback(e domain.SchemeFallbackEvent) error {
	p.fallbacks = append(p.fallbacks, e)
	p.add(domain.SchemeFallbackEventType)
	return nil
}

func (p *recordingPublisher) PublishConvergenceWarning(domain.ConvergenceWarningEvent) error {
	p.add(domain.ConvergenceWarningEventType)
	return nil
}

func (p *recordingPublisher) PublishPricingError(e domain.PricingErrorEvent) error {
	p.errs = append(p.errs, e)
	p.add(domain.PricingErrorEventType)
	return nil
}

// recordingCollector 记录定价运行状态
type recordingCollector struct {
	statuses []string
}

func (c *recordingCollector) RecordPricing(_ string, status string, _ float64) {
	c.statuses = append(c.statuses, status)
}
func (c *recordingCollector) RecordLatticeSteps(int)          {}
func (c *recordingCollector) RecordSchemeFallback(string)     {}
func (c *recordingCollector) RecordConvergenceWarning(string) {}
func (c *recordingCollector) RecordGreek(string, string)      {}

func newService(t *testing.T, settings EngineSettings, opts ...CommandOption) *PricingService {
	t.Helper()
	r, err := NewDefaultRegistry(settings)
	require.NoError(t, err)
	return NewPricingService(r, sensitivity.NewEngine(), opts...)
}

func atTheMoney(isCall bool) ContractParams {
	return ContractParams{Strike: 100, Maturity: 1, IsCall: isCall}
}

var standard = ModelParams{Spot: 100, Rate: 0.05, Vol: 0.2}

func TestPriceOption_BlackScholesWithGreeks(t *testing.T) {
	pub := &recordingPublisher{}
	col := &recordingCollector{}
	svc := newService(t, testSettings(), WithPublisher(pub), WithCollector(col))

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		ContractParams: atTheMoney(true),
		ModelParams:    standard,
		WithGreeks:     true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "BlackScholes(spot=100, rate=0.05, vol=0.2)", res.PricingModel)
	assert.Equal(t, "EUROPEAN Call Option: strike=100, maturity=1", res.Contract)
	assert.Equal(t, "10.450584", res.OptionPrice.String())
	require.NotNil(t, res.Delta)
	assert.InDelta(t, 0.636831, res.Delta.InexactFloat64(), 1e-6)
	require.NotNil(t, res.Vega)
	assert.InDelta(t, 37.524035, res.Vega.InexactFloat64(), 1e-5)
	assert.Nil(t, res.StdError)
	for _, g := range sensitivity.AllGreeks {
		assert.Equal(t, string(sensitivity.MethodClosedForm), res.GreekMethods[string(g)])
	}

	assert.Equal(t, []string{domain.GreeksCalculatedEventType, domain.OptionPricedEventType}, pub.types)
	assert.Equal(t, []string{"success"}, col.statuses)
}

func TestPriceOption_DigitalFallsBackToFiniteDifference(t *testing.T) {
	svc := newService(t, testSettings())

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          "BlackScholes",
		Contract:       "Digital",
		ModelParams:    standard,
		ContractParams: atTheMoney(true),
		WithGreeks:     true,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.532325, res.OptionPrice.InexactFloat64(), 1e-5)
	for _, g := range sensitivity.AllGreeks {
		assert.Equal(t, string(sensitivity.MethodFiniteDifference), res.GreekMethods[string(g)])
	}
	require.NotNil(t, res.Delta)
	assert.Greater(t, res.Delta.InexactFloat64(), 0.0)
}

func TestPriceOption_TrinomialFallbackReported(t *testing.T) {
	settings := testSettings()
	settings.Lattice = lattice.SelectorConfig{
		Steps: 5, MaxSteps: 8, Tolerance: 1e-4, Adaptive: true, Fallback: lattice.SchemeKamradRitchken,
	}
	pub := &recordingPublisher{}
	svc := newService(t, settings, WithPublisher(pub), WithTolerance(1e-4))

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          lattice.TrinomialTreeName,
		Contract:       "European",
		ModelParams:    ModelParams{Spot: 100, Rate: 0.25, Vol: 0.08, Scheme: "jr"},
		ContractParams: atTheMoney(true),
	})
	require.NoError(t, err)

	assert.Equal(t, lattice.SchemeKamradRitchken, res.Scheme)
	assert.Equal(t, 5, res.Steps)
	assert.InDelta(t, 22.11992, res.OptionPrice.InexactFloat64(), 1e-4)
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, domain.WarningFallback, res.Warnings[0].Kind)
	assert.Equal(t, domain.WarningConvergence, res.Warnings[1].Kind)

	assert.Equal(t, []string{
		domain.SchemeFallbackEventType, domain.ConvergenceWarningEventType, domain.OptionPricedEventType,
	}, pub.types)
	require.Len(t, pub.fallbacks, 1)
	assert.Equal(t, lattice.SchemeJarrowRudd, pub.fallbacks[0].Requested)
	assert.Equal(t, lattice.SchemeKamradRitchken, pub.fallbacks[0].Substitute)
}

func TestPriceOption_StrictInvalidSchemeFails(t *testing.T) {
	settings := testSettings()
	settings.Lattice = lattice.SelectorConfig{Steps: 4, MaxSteps: 4}
	pub := &recordingPublisher{}
	svc := newService(t, settings, WithPublisher(pub))

	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          lattice.TrinomialTreeName,
		ModelParams:    ModelParams{Spot: 100, Rate: 0.3, Vol: 0.05, Scheme: "jr"},
		ContractParams: atTheMoney(true),
	})
	var invalid *domain.InvalidSchemeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, lattice.SchemeJarrowRudd, invalid.Scheme)
	assert.Equal(t, []string{domain.PricingErrorEventType}, pub.types)
}

func TestPriceOption_MonteCarloReportsStdError(t *testing.T) {
	svc := newService(t, testSettings())

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          "Heston",
		ModelParams:    ModelParams{Spot: 100, Rate: 0.05, V0: 0.04, Kappa: 2, Theta: 0.04, Xi: 0.3, Rho: -0.7},
		ContractParams: atTheMoney(true),
	})
	require.NoError(t, err)
	require.NotNil(t, res.StdError)
	assert.Greater(t, res.StdError.InexactFloat64(), 0.0)
	assert.InDelta(t, 10.4, res.OptionPrice.InexactFloat64(), 1.5)
}

func TestPriceOption_ErrorsPublished(t *testing.T) {
	pub := &recordingPublisher{}
	col := &recordingCollector{}
	svc := newService(t, testSettings(), WithPublisher(pub), WithCollector(col))

	_, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          "SABR",
		ModelParams:    standard,
		ContractParams: atTheMoney(true),
	})
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	require.Len(t, pub.errs, 1)
	assert.Equal(t, "SABR", pub.errs[0].PricingModel)
	assert.Equal(t, []string{"error"}, col.statuses)

	_, err = svc.PriceOption(context.Background(), PriceOptionCommand{
		Model:          "BlackScholes",
		Contract:       "American",
		ModelParams:    standard,
		ContractParams: atTheMoney(false),
	})
	assert.True(t, errors.Is(err, domain.ErrUnsupportedContract))
}

func TestPriceOption_Precision(t *testing.T) {
	svc := newService(t, testSettings(), WithPrecision(2))

	res, err := svc.PriceOption(context.Background(), PriceOptionCommand{
		ModelParams:    standard,
		ContractParams: atTheMoney(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "5.57", res.OptionPrice.String())
}

func TestBatchPriceOptions(t *testing.T) {
	svc := newService(t, testSettings())

	res, err := svc.BatchPriceOptions(context.Background(), BatchPriceOptionsCommand{
		Contracts: []PriceOptionCommand{
			{Model: "BlackScholes", ModelParams: standard, ContractParams: atTheMoney(true)},
			{Model: "Unknown", ModelParams: standard, ContractParams: atTheMoney(true)},
			{Model: lattice.BinomialTreeName, Contract: "American", ModelParams: standard, ContractParams: atTheMoney(false)},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "#1 Unknown/European")
	require.Len(t, res.Results, 2)
	assert.InDelta(t, 6.09, res.Results[1].OptionPrice.InexactFloat64(), 0.01)
}

func TestPriceOptionCommand_WithDefaults(t *testing.T) {
	cmd := PriceOptionCommand{Model: "Unknown"}.WithDefaults()
	assert.Equal(t, "Unknown", cmd.Model)
	assert.Equal(t, DefaultContract, cmd.Contract)

	cmd = PriceOptionCommand{Contract: "Digital"}.WithDefaults()
	assert.Equal(t, DefaultModel, cmd.Model)
	assert.Equal(t, "Digital", cmd.Contract)
}

func TestPricingService_Queries(t *testing.T) {
	svc := newService(t, testSettings())
	ctx := context.Background()

	assert.Len(t, svc.ListModels(ctx), 6)
	assert.Len(t, svc.ListContracts(ctx), 4)
	assert.Contains(t, svc.Describe(ctx), "  - MertonJumpDiffusion\n")

	_, err := svc.PriceOption(ctx, PriceOptionCommand{ModelParams: standard, ContractParams: atTheMoney(true)})
	require.NoError(t, err)
	assert.Len(t, svc.Query.RecentCreations(ctx, 10), 2)
}
