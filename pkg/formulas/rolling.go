package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RollingVolatility returns the annualized standard deviation of returns over
// a trailing window, one value per complete window. talib computes the
// population deviation, which is the usual convention for rolling charts.
func RollingVolatility(returns []float64, window int) []float64 {
	if window < 2 || len(returns) < window {
		return []float64{}
	}

	raw := talib.StdDev(returns, window, 1.0)

	out := make([]float64, 0, len(returns)-window+1)
	for i := window - 1; i < len(raw); i++ {
		out = append(out, raw[i]*math.Sqrt(TradingDaysPerYear))
	}
	return out
}
