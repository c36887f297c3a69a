package returns

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// oneYear is exactly 365.25 days
const oneYear = 8766 * time.Hour

func TestXIRR_RecoversTenPercent(t *testing.T) {
	t.Run("terminal value", func(t *testing.T) {
		res, err := XIRR([]CashFlow{{Amount: -1000, Date: t0}}, 1100, t0.Add(oneYear))
		require.NoError(t, err)
		assert.InDelta(t, 0.10, res.Rate, 1e-6)
		assert.Equal(t, MethodNewton, res.Method)
	})

	t.Run("explicit flows", func(t *testing.T) {
		flows := []CashFlow{{Amount: 1100, Date: t0.Add(oneYear)}, {Amount: -1000, Date: t0}}
		res, err := XIRR(flows, 0, t0.Add(oneYear))
		require.NoError(t, err)
		assert.InDelta(t, 0.10, res.Rate, 1e-6)
	})
}

func TestXIRR_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name         string
		flows        []CashFlow
		currentValue float64
	}{
		{"no flows", nil, 0},
		{"only the terminal value", nil, 500},
		{"single flow without value", []CashFlow{{Amount: -1000, Date: t0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := XIRR(tt.flows, tt.currentValue, t0.Add(oneYear))
			require.NoError(t, err)
			assert.Equal(t, 0.0, res.Rate)
			assert.Equal(t, MethodDegenerate, res.Method)
		})
	}
}

func TestXIRR_FallsBackToBrent(t *testing.T) {
	// Newton from 0.1 jumps below -1 for a 90% loss
	res, err := XIRR([]CashFlow{{Amount: -1000, Date: t0}}, 100, t0.Add(oneYear))
	require.NoError(t, err)
	assert.Equal(t, MethodBrent, res.Method)
	assert.InDelta(t, -0.9, res.Rate, 1e-6)
}

func TestXIRR_FailsWhenEveryStageFails(t *testing.T) {
	// A 99.5% loss lies outside the bracket and the approximation base is negative
	_, err := XIRR([]CashFlow{{Amount: -1000, Date: t0}}, 5, t0.Add(oneYear))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConvergence))
}

func TestApproximateRate(t *testing.T) {
	rate, err := approximateRate(3000, -1000, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rate, 1e-12)

	rate, err = approximateRate(3000, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	rate, err = approximateRate(3000, -1000, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	_, err = approximateRate(100, -1000, 1)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestBrent(t *testing.T) {
	root, err := brent(func(x float64) float64 { return x*x - 2 }, 0, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, root, 1e-10)

	_, err = brent(func(x float64) float64 { return x*x + 1 }, -1, 1)
	assert.ErrorIs(t, err, ErrNoConvergence)
}
