package application

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
	"github.com/wyfcoding/optionpricing/internal/pricing/lattice"
	"github.com/wyfcoding/optionpricing/internal/pricing/montecarlo"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry(testSettings())
	require.NoError(t, err)
	return r
}

func testSettings() EngineSettings {
	return EngineSettings{
		Scheme:     lattice.SchemeKamradRitchken,
		Lattice:    lattice.DefaultSelectorConfig(),
		Simulation: montecarlo.SimulationConfig{Steps: 10, Paths: 2000, Seed: 42},
	}
}

func TestRegistry_DefaultNames(t *testing.T) {
	r := defaultRegistry(t)

	assert.Equal(t, []string{
		"BinomialTree", "BlackScholes", "Heston", "MertonJumpDiffusion", "MonteCarloGBM", "TrinomialTree",
	}, r.ListModels())
	assert.Equal(t, []string{"American", "Asian", "Digital", "European"}, r.ListContracts())
}

func TestRegistry_UnknownNameListsAvailable(t *testing.T) {
	r := defaultRegistry(t)

	_, err := r.CreateModel("Bachelier", ModelParams{Spot: 100, Vol: 0.2})
	var unknown *domain.UnknownNameError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "model", unknown.Kind)
	assert.Equal(t, r.ListModels(), unknown.Available)
	assert.Contains(t, err.Error(), "Available: [BinomialTree, BlackScholes")

	_, err = r.CreateContract("Barrier", ContractParams{Strike: 100, Maturity: 1})
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "contract", unknown.Kind)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	ctor := func(ContractParams) (domain.Contract, error) { return domain.Contract{}, nil }

	require.NoError(t, r.RegisterContract("European", ctor))
	assert.Error(t, r.RegisterContract("European", ctor))
}

func TestRegistry_ConstructorErrorsWrapped(t *testing.T) {
	r := defaultRegistry(t)

	_, err := r.CreateContract("European", ContractParams{Strike: -1, Maturity: 1})
	assert.True(t, errors.Is(err, domain.ErrInvalidContract))

	_, err = r.CreateModel("BlackScholes", ModelParams{Spot: 100, Vol: 0})
	assert.True(t, errors.Is(err, domain.ErrInvalidModel))

	_, err = r.CreateModel("TrinomialTree", ModelParams{Spot: 100, Vol: 0.2, Scheme: "crr"})
	assert.True(t, errors.Is(err, domain.ErrInvalidModel))
}

func TestRegistry_DigitalPayout(t *testing.T) {
	r := defaultRegistry(t)

	c, err := r.CreateContract("Digital", ContractParams{Strike: 100, Maturity: 1, IsCall: true, Payout: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Payout)

	c, err = r.CreateContract("Digital", ContractParams{Strike: 100, Maturity: 1, IsCall: true})
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Payout)
}

func TestRegistry_DescribeAndCreationLog(t *testing.T) {
	r := defaultRegistry(t)

	desc := r.Describe()
	assert.Contains(t, desc, "Models:\n  - BinomialTree\n")
	assert.Contains(t, desc, "Contracts:\n  - American\n")

	_, err := r.CreateModel("BlackScholes", ModelParams{Spot: 100, Rate: 0.05, Vol: 0.2})
	require.NoError(t, err)
	_, err = r.CreateContract("European", ContractParams{Strike: 100, Maturity: 1, IsCall: true})
	require.NoError(t, err)

	all := r.RecentCreations(0)
	require.Len(t, all, 2)
	assert.Equal(t, "model", all[0].Kind)
	assert.Equal(t, "BlackScholes(spot=100, rate=0.05, vol=0.2)", all[0].Description)
	first, err := strconv.ParseUint(all[0].ID, 10, 64)
	require.NoError(t, err)
	second, err := strconv.ParseUint(all[1].ID, 10, 64)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	last := r.RecentCreations(1)
	require.Len(t, last, 1)
	assert.Equal(t, "contract", last[0].Kind)
	assert.Equal(t, "Call Option: strike=100, maturity=1", last[0].Description)
}

func TestRegistry_TrinomialUsesDefaultScheme(t *testing.T) {
	r := defaultRegistry(t)

	m, err := r.CreateModel("TrinomialTree", ModelParams{Spot: 100, Rate: 0.05, Vol: 0.2})
	require.NoError(t, err)
	tree, ok := m.(lattice.TreeModel)
	require.True(t, ok)
	assert.Equal(t, lattice.SchemeKamradRitchken, tree.Scheme.Name)
}

func TestRegisterDefaults_DuplicateFails(t *testing.T) {
	r := defaultRegistry(t)
	err := RegisterDefaults(r, testSettings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Len(t, r.ListModels(), 6)
}
