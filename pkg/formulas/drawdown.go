package formulas

// DrawdownMetrics represents drawdown analysis results.
// Drawdowns are non-positive fractions (-0.25 = 25% below peak).
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	DaysInDrawdown  int     `json:"days_in_drawdown"` // periods since the last peak
	PeakValue       float64 `json:"peak_value"`
	CurrentValue    float64 `json:"current_value"`
}

// CumulativeValues compounds returns into a growth path starting from 1:
// cum[i] = (1+r0)*(1+r1)*...*(1+ri)
func CumulativeValues(returns []float64) []float64 {
	cum := make([]float64, len(returns))
	value := 1.0
	for i, r := range returns {
		value *= 1 + r
		cum[i] = value
	}
	return cum
}

// MaxDrawdown calculates min((cum - runningMax(cum)) / runningMax(cum)) over
// the cumulative growth of returns. The result is always <= 0 and equals 0
// only for a non-decreasing path.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return MaxDrawdownFromValues(CumulativeValues(returns))
}

// MaxDrawdownFromValues applies the drawdown formula to a value series directly
func MaxDrawdownFromValues(values []float64) float64 {
	m := CalculateDrawdownMetrics(values)
	if m == nil {
		return 0
	}
	return m.MaxDrawdown
}

// CalculateDrawdownMetrics calculates max and current drawdown, the peak and
// how long the series has been below it. Returns nil for an empty series.
func CalculateDrawdownMetrics(values []float64) *DrawdownMetrics {
	if len(values) == 0 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]
	peakIndex := 0

	for i, v := range values {
		if v > peak {
			peak = v
			peakIndex = i
		}
		if peak > 0 {
			if dd := (v - peak) / peak; dd < maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	current := values[len(values)-1]
	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = (current - peak) / peak
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDrawdown,
		CurrentDrawdown: currentDrawdown,
		DaysInDrawdown:  len(values) - 1 - peakIndex,
		PeakValue:       peak,
		CurrentValue:    current,
	}
}
