package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharpeRatio(t *testing.T) {
	t.Run("zero volatility is neutral", func(t *testing.T) {
		assert.Equal(t, 0.0, SharpeRatio(makeReturns(0.001, 100), DefaultRiskFreeRate))
	})

	t.Run("insufficient data", func(t *testing.T) {
		assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, DefaultRiskFreeRate))
	})

	t.Run("matches formula", func(t *testing.T) {
		returns := []float64{0.01, -0.005, 0.02, -0.01, 0.015}
		expected := (Mean(returns)*252 - 0.02) / (StdDev(returns) * math.Sqrt(252))
		assert.InDelta(t, expected, SharpeRatio(returns, 0.02), 1e-12)
	})
}

func TestSortinoRatio(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{"no downside with positive excess is +Inf", []float64{0.01, 0.02, 0.01, 0.03}, math.Inf(1)},
		{"no downside with negative excess is neutral", []float64{0, 0, 0.00001, 0}, 0},
		{"zero volatility is neutral", makeReturns(0, 30), 0},
		{"constant positive return is neutral", makeReturns(0.001, 40), 0},
		{"insufficient data", []float64{0.05}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SortinoRatio(tt.returns, DefaultRiskFreeRate))
		})
	}

	t.Run("matches formula", func(t *testing.T) {
		returns := []float64{0.02, -0.01, 0.015, -0.03, 0.01}
		downside := StdDev([]float64{-0.01, -0.03}) * math.Sqrt(252)
		expected := (Mean(returns)*252 - 0.02) / downside
		assert.InDelta(t, expected, SortinoRatio(returns, 0.02), 1e-12)
	})
}

func TestCalmarAndProfitFactor(t *testing.T) {
	assert.Equal(t, 0.0, CalmarRatio(0.2, 0))
	assert.InDelta(t, 2.0, CalmarRatio(0.2, -0.1), 1e-12)

	assert.Equal(t, 0.0, ProfitFactor(500, 0), "no losses is defined as zero")
	assert.InDelta(t, 2.5, ProfitFactor(500, -200), 1e-12)
}
