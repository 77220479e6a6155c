package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContract_Validate(t *testing.T) {
	tests := []struct {
		name     string
		contract Contract
		wantErr  bool
	}{
		{"european call", Contract{Style: StyleEuropean, Strike: 100, Maturity: 1, IsCall: true}, false},
		{"digital zero payout", Contract{Style: StyleDigital, Strike: 100, Maturity: 1}, false},
		{"unknown style", Contract{Style: "BERMUDAN", Strike: 100, Maturity: 1}, true},
		{"zero strike", Contract{Style: StyleEuropean, Strike: 0, Maturity: 1}, true},
		{"negative maturity", Contract{Style: StyleAmerican, Strike: 100, Maturity: -0.5}, true},
		{"nan strike", Contract{Style: StyleAsian, Strike: math.NaN(), Maturity: 1}, true},
		{"negative payout", Contract{Style: StyleDigital, Strike: 100, Maturity: 1, Payout: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.contract.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidContract))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewContract_DigitalDefaultsPayout(t *testing.T) {
	c, err := NewContract(StyleDigital, 100, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Payout)

	c, err = NewContract(StyleDigital, 100, 1, true, WithPayout(25))
	require.NoError(t, err)
	assert.Equal(t, 25.0, c.Payout)

	_, err = NewContract(StyleEuropean, -1, 1, true)
	assert.True(t, errors.Is(err, ErrInvalidContract))
}

func TestContract_DigitalPayoffAtStrike(t *testing.T) {
	call, err := NewContract(StyleDigital, 100, 1, true, WithPayout(10))
	require.NoError(t, err)
	put, err := NewContract(StyleDigital, 100, 1, false, WithPayout(10))
	require.NoError(t, err)

	// 恰好等于执行价时看涨与看跌都不支付
	assert.Equal(t, 0.0, call.Payoff(100))
	assert.Equal(t, 0.0, put.Payoff(100))
	assert.Equal(t, 10.0, call.Payoff(100.01))
	assert.Equal(t, 0.0, put.Payoff(100.01))
	assert.Equal(t, 10.0, put.Payoff(99.99))
}

func TestContract_PathPayoff(t *testing.T) {
	asian, err := NewContract(StyleAsian, 100, 1, true)
	require.NoError(t, err)
	european, err := NewContract(StyleEuropean, 100, 1, true)
	require.NoError(t, err)

	assert.Equal(t, 0.0, asian.PathPayoff(nil))
	assert.Equal(t, 0.0, european.PathPayoff([]float64{}))
	assert.InDelta(t, 10.0, asian.PathPayoff([]float64{100, 110, 120}), 1e-12)
	assert.InDelta(t, 20.0, european.PathPayoff([]float64{100, 110, 120}), 1e-12)
	assert.Equal(t, PayoffPath, asian.Kind())
	assert.Equal(t, PayoffSpot, european.Kind())
	assert.Equal(t, "path", asian.Kind().String())
}

func TestContract_DescribeAndCopies(t *testing.T) {
	c, err := NewContract(StyleAmerican, 95, 0.5, false)
	require.NoError(t, err)
	assert.Equal(t, "Put Option: strike=95, maturity=0.5", c.Describe())
	assert.Equal(t, "AMERICAN Put Option: strike=95, maturity=0.5", c.String())
	assert.True(t, c.EarlyExercise())

	longer := c.WithMaturity(2)
	assert.Equal(t, 0.5, c.Maturity)
	assert.Equal(t, 2.0, longer.Maturity)
}

func TestBlackScholes_ClosedForm(t *testing.T) {
	m, err := NewBlackScholesModel(100, 0.05, 0.2)
	require.NoError(t, err)
	call, err := NewContract(StyleEuropean, 100, 1, true)
	require.NoError(t, err)
	put, err := NewContract(StyleEuropean, 100, 1, false)
	require.NoError(t, err)

	cp, err := m.Price(call)
	require.NoError(t, err)
	pp, err := m.Price(put)
	require.NoError(t, err)
	assert.InDelta(t, 10.450584, cp, 1e-6)
	assert.InDelta(t, 5.573526, pp, 1e-6)
	// 看涨看跌平价
	assert.InDelta(t, 100-100*math.Exp(-0.05), cp-pp, 1e-10)

	gamma, err := m.Gamma(call)
	require.NoError(t, err)
	assert.InDelta(t, 0.018762, gamma, 1e-6)

	amPut, err := NewContract(StyleAmerican, 100, 1, false)
	require.NoError(t, err)
	_, err = m.Price(amPut)
	assert.True(t, errors.Is(err, ErrUnsupportedContract))
}

func TestBlackScholes_DigitalClosedForm(t *testing.T) {
	m, err := NewBlackScholesModel(100, 0.05, 0.2)
	require.NoError(t, err)
	call, err := NewContract(StyleDigital, 100, 1, true)
	require.NoError(t, err)
	put, err := NewContract(StyleDigital, 100, 1, false)
	require.NoError(t, err)

	cp, err := m.Price(call)
	require.NoError(t, err)
	pp, err := m.Price(put)
	require.NoError(t, err)
	assert.InDelta(t, 0.532325, cp, 1e-6)
	// 数字看涨加看跌等于折现的支付额
	assert.InDelta(t, math.Exp(-0.05), cp+pp, 1e-12)

	big := call
	WithPayout(10)(&big)
	scaled, err := m.Price(big)
	require.NoError(t, err)
	assert.InDelta(t, 10*cp, scaled, 1e-12)

	_, err = m.Delta(call)
	assert.True(t, errors.Is(err, ErrUnsupportedContract))
}

func TestBlackScholes_WithParamCopies(t *testing.T) {
	m, err := NewBlackScholesModel(100, 0.05, 0.2)
	require.NoError(t, err)

	bumped, err := m.WithParam(ParamVolatility, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.2, m.Vol)
	v, err := bumped.(BlackScholesModel).Param(ParamVolatility)
	require.NoError(t, err)
	assert.Equal(t, 0.3, v)

	_, err = m.WithParam("kappa", 1)
	assert.True(t, errors.Is(err, ErrUnsupportedParameter))
	_, err = NewBlackScholesModel(100, 0.05, 0)
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestErrors_Messages(t *testing.T) {
	unknown := &UnknownNameError{Kind: "scheme", Name: "foo", Available: []string{"boyle", "tian"}}
	assert.Equal(t, `scheme "foo" not found. Available: [boyle, tian]`, unknown.Error())

	invalid := &InvalidSchemeError{Scheme: "tian", Steps: 5, Dt: 0.2, Failure: "probability outside [0,1]"}
	assert.Equal(t, "scheme tian invalid at steps=5 dt=0.2: probability outside [0,1]", invalid.Error())
}
