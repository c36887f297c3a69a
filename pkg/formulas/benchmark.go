package formulas

import "math"

// Beta calculates cov(portfolio, benchmark) / var(benchmark) with sample
// estimators on both sides. Mismatched lengths, short series or a constant
// benchmark yield 0.
func Beta(portfolio, benchmark []float64) float64 {
	if len(portfolio) < 2 || len(portfolio) != len(benchmark) {
		return 0
	}

	v := Variance(benchmark)
	if v == 0 {
		return 0
	}

	return Covariance(portfolio, benchmark) / v
}

// TrackingError calculates std(portfolio - benchmark) * sqrt(252)
func TrackingError(portfolio, benchmark []float64) float64 {
	if len(portfolio) < 2 || len(portfolio) != len(benchmark) {
		return 0
	}

	active := make([]float64, len(portfolio))
	for i := range portfolio {
		active[i] = portfolio[i] - benchmark[i]
	}

	return StdDev(active) * math.Sqrt(TradingDaysPerYear)
}
