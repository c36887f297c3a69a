package formulas

import (
	"math"
)

// SharpeRatio calculates the annualized Sharpe ratio of daily returns.
//
// Formula:
//
//	Sharpe = (mean(returns) * 252 - riskFreeRate) / (std(returns) * sqrt(252))
//
// Returns 0 when there are fewer than two observations or volatility is zero.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	volatility := AnnualizedVolatility(returns)
	if volatility == 0 {
		return 0
	}

	return (AnnualizedMeanReturn(returns) - riskFreeRate) / volatility
}

// DownsideDeviation is the annualized sample standard deviation of the
// strictly negative returns. Fewer than two negative returns give 0.
func DownsideDeviation(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	return StdDev(downside) * math.Sqrt(TradingDaysPerYear)
}

// SortinoRatio calculates the annualized Sortino ratio of daily returns.
//
// Formula:
//
//	Sortino = (mean(returns) * 252 - riskFreeRate) / DownsideDeviation(returns)
//
// A zero-volatility series is neutral (0). Otherwise, when the downside
// deviation is zero the ratio is +Inf if the excess return is positive and 0
// otherwise. Callers must treat +Inf as "no observed downside".
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 || AnnualizedVolatility(returns) == 0 {
		return 0
	}

	excess := AnnualizedMeanReturn(returns) - riskFreeRate
	downside := DownsideDeviation(returns)
	if downside == 0 {
		if excess > 0 {
			return math.Inf(1)
		}
		return 0
	}

	return excess / downside
}

// CalmarRatio divides an annualized return by the magnitude of the maximum
// drawdown. A zero drawdown yields 0.
func CalmarRatio(annualReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualReturn / math.Abs(maxDrawdown)
}

// ProfitFactor is gross wins divided by the magnitude of gross losses.
// No losses yields 0 by convention.
func ProfitFactor(grossWins, grossLosses float64) float64 {
	if grossLosses == 0 {
		return 0
	}
	return grossWins / math.Abs(grossLosses)
}
