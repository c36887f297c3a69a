// Package formulas holds the pure statistical building blocks used by the
// return, risk and simulation engines. Every function is safe on short or
// empty input and returns a neutral value instead of NaN.
package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization constant for daily series
const TradingDaysPerYear = 252

// DefaultRiskFreeRate is the annual risk-free rate used when none is configured
const DefaultRiskFreeRate = 0.02

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (n-1 denominator).
// Fewer than two observations or a constant series yield exactly 0.
func StdDev(data []float64) float64 {
	if len(data) < 2 || isConstant(data) {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance (n-1 denominator)
func Variance(data []float64) float64 {
	if len(data) < 2 || isConstant(data) {
		return 0
	}
	return stat.Variance(data, nil)
}

// isConstant reports whether every element equals the first. Rounding in the
// mean would otherwise leave a tiny non-zero deviation on constant input.
func isConstant(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return false
		}
	}
	return true
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: StdDev(daily returns) * sqrt(252)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// AnnualizedMeanReturn scales the mean periodic return to a yearly figure (mean * 252)
func AnnualizedMeanReturn(dailyReturns []float64) float64 {
	return Mean(dailyReturns) * TradingDaysPerYear
}

// CalculateReturns converts prices to simple returns.
// Returns[i] = (Price[i+1] - Price[i]) / Price[i]; a zero base price yields 0.
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two datasets.
// Mismatched, short or constant series yield 0.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(-1, math.Min(1, c))
}

// Covariance calculates the sample covariance between two datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between closest ranks, matching the conventional "linear" method.
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Skewness returns the population skewness m3/m2^1.5 over central moments
// divided by n (no small-sample correction), or 0 for fewer than three
// observations or a constant series.
func Skewness(data []float64) float64 {
	if len(data) < 3 || StdDev(data) == 0 {
		return 0
	}
	m2 := stat.Moment(2, data, nil)
	return stat.Moment(3, data, nil) / math.Pow(m2, 1.5)
}

// ExcessKurtosis returns the population excess kurtosis m4/m2^2 - 3
// (normal = 0, no small-sample correction), or 0 for fewer than four
// observations or a constant series.
func ExcessKurtosis(data []float64) float64 {
	if len(data) < 4 || StdDev(data) == 0 {
		return 0
	}
	m2 := stat.Moment(2, data, nil)
	return stat.Moment(4, data, nil)/(m2*m2) - 3
}

// CompoundAnnualReturn annualizes a series of periodic returns geometrically:
// ((1+r1)*(1+r2)*...*(1+rN))^(252/N) - 1.
// Series shorter than three periods return the plain cumulative return.
func CompoundAnnualReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 1.0
	for _, r := range returns {
		cumulative *= 1 + r
	}

	if len(returns) < 3 || cumulative <= 0 {
		return cumulative - 1
	}

	years := float64(len(returns)) / TradingDaysPerYear
	return math.Pow(cumulative, 1/years) - 1
}
