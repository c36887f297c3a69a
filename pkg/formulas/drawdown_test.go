package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		expected float64
	}{
		{"empty", nil, 0},
		{"monotonic gains", []float64{0.01, 0, 0.02, 0.005}, 0},
		{"single crash", []float64{0.1, -0.5, 0.2}, -0.5},
		{"two troughs keeps the deeper", []float64{0.1, -0.1, 0.3, -0.2, 0.1}, -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := MaxDrawdown(tt.returns)
			assert.InDelta(t, tt.expected, dd, 1e-12)
			assert.LessOrEqual(t, dd, 0.0)
		})
	}
}

func TestCalculateDrawdownMetrics(t *testing.T) {
	assert.Nil(t, CalculateDrawdownMetrics(nil))

	m := CalculateDrawdownMetrics([]float64{100, 120, 90, 96})
	require.NotNil(t, m)
	assert.InDelta(t, -0.25, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, -0.2, m.CurrentDrawdown, 1e-12)
	assert.Equal(t, 2, m.DaysInDrawdown)
	assert.Equal(t, 120.0, m.PeakValue)
	assert.Equal(t, 96.0, m.CurrentValue)
}

func TestCumulativeValues(t *testing.T) {
	cum := CumulativeValues([]float64{0.1, -0.1})
	assert.InDelta(t, 1.1, cum[0], 1e-12)
	assert.InDelta(t, 0.99, cum[1], 1e-12)
}
