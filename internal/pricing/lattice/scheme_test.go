package lattice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

func TestSchemeParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		params SchemeParameters
		valid  bool
	}{
		{"proper trinomial", SchemeParameters{U: 1.1, D: 0.9, M: 1, Pu: 0.3, Pm: 0.4, Pd: 0.3}, true},
		{"proper binomial", SchemeParameters{U: 1.1, D: 0.9, M: 1, Pu: 0.55, Pd: 0.45}, true},
		{"negative middle", SchemeParameters{U: 1.1, D: 0.9, M: 1, Pu: 0.6, Pm: -0.1, Pd: 0.5}, false},
		{"above one", SchemeParameters{U: 1.1, D: 0.9, M: 1, Pu: 1.2, Pm: 0, Pd: -0.2}, false},
		{"not summing", SchemeParameters{U: 1.1, D: 0.9, M: 1, Pu: 0.3, Pm: 0.3, Pd: 0.3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failure := tt.params.Validate()
			if tt.valid {
				assert.Nil(t, failure)
			} else {
				require.NotNil(t, failure)
				assert.NotEmpty(t, failure.Reason)
			}
		})
	}
}

func TestBoyle_AlwaysValid(t *testing.T) {
	for _, dt := range []float64{1, 0.25, 0.01, 1e-4} {
		p := Boyle.Params(100, 0.3, 0.05, dt)
		assert.Nil(t, p.Validate(), "dt=%v", dt)
		assert.InDelta(t, 1.0/6, p.Pu, 1e-15)
		assert.InDelta(t, 2.0/3, p.Pm, 1e-15)
	}
}

func TestJarrowRudd_ValidityBoundary(t *testing.T) {
	// r=0.3, vol=0.05, T=1: 步长过粗时概率越界，细化后合法
	for _, steps := range []int{4, 8, 16} {
		p := JarrowRudd.Params(100, 0.3, 0.05, 1/float64(steps))
		assert.NotNil(t, p.Validate(), "steps=%d", steps)
	}
	p := JarrowRudd.Params(100, 0.3, 0.05, 1.0/32)
	assert.Nil(t, p.Validate())
}

func TestTian_ValidityBoundary(t *testing.T) {
	for _, steps := range []int{1, 2} {
		p := Tian.Params(100, 0.05, 2, 1/float64(steps))
		assert.NotNil(t, p.Validate(), "steps=%d", steps)
	}
	assert.Nil(t, Tian.Params(100, 0.05, 2, 0.25).Validate())
}

func TestSchemes_ValidAtStandardParameters(t *testing.T) {
	for _, s := range []Scheme{JarrowRudd, Tian, KamradRitchken, CoxRossRubinstein} {
		for _, steps := range []int{1, 2, 5, 50, 500} {
			p := s.Params(100, 0.05, 0.2, 1/float64(steps))
			assert.Nil(t, p.Validate(), "%s steps=%d", s.Name, steps)
		}
	}
}

func TestKamradRitchken_MatchesDrift(t *testing.T) {
	p := KamradRitchken.Params(100, 0.05, 0.2, 0.01)
	require.Nil(t, p.Validate())
	assert.Greater(t, p.Pu, p.Pd)
	assert.InDelta(t, 1, p.U*p.D, 1e-12)
}

func TestLookupScheme(t *testing.T) {
	s, err := LookupScheme("kr")
	require.NoError(t, err)
	assert.Equal(t, SchemeKamradRitchken, s.Name)

	s, err = LookupScheme("tian")
	require.NoError(t, err)
	assert.Equal(t, Trinomial, s.Branching)

	_, err = LookupScheme("leisen-reimer")
	var unknown *domain.UnknownNameError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "scheme", unknown.Kind)
	assert.Equal(t, SchemeNames(), unknown.Available)
	assert.Contains(t, err.Error(), "Available: [boyle, cox-ross-rubinstein, jarrow-rudd, kamrad-ritchken, tian]")
}
