package formulas

// HistoricalVaR returns the p-th percentile (0-100) of the returns.
// The default p is 5; the result is a return, typically negative.
func HistoricalVaR(returns []float64, p float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return Percentile(returns, p)
}

// HistoricalCVaR returns the mean of all returns at or below the p-th
// percentile VaR threshold.
func HistoricalCVaR(returns []float64, p float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	threshold := HistoricalVaR(returns, p)

	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= threshold {
			sum += r
			count++
		}
	}
	if count == 0 {
		return threshold
	}

	return sum / float64(count)
}
