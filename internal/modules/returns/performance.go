package returns

import (
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// Performance holds the risk-adjusted return ratios of a daily return series
type Performance struct {
	Days             int            `json:"days"`
	AnnualizedReturn float64        `json:"annualized_return"`
	Volatility       float64        `json:"volatility"`
	SharpeRatio      float64        `json:"sharpe_ratio"`
	SortinoRatio     formulas.Ratio `json:"sortino_ratio"`
	CalmarRatio      float64        `json:"calmar_ratio"`
	MaxDrawdown      float64        `json:"max_drawdown"`
	BestDay          float64        `json:"best_day"`
	WorstDay         float64        `json:"worst_day"`
}

// MonthlyReturn is the compounded flow-adjusted return of one calendar month
type MonthlyReturn struct {
	Month      string  `json:"month"` // YYYY-MM
	Return     float64 `json:"return"`
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
	NetFlow    float64 `json:"net_flow"`
}

// FlowAdjustedReturns converts a value series into daily returns with the
// day's net flow removed. Days that start with no invested value are skipped.
func FlowAdjustedReturns(points []ValuationPoint) []float64 {
	var out []float64
	for i := 1; i < len(points); i++ {
		if points[i-1].Value <= 0 {
			continue
		}
		out = append(out, periodReturn(points[i-1], points[i]))
	}
	return out
}

// PerformanceFromReturns applies the standard annualized ratios to returns
func PerformanceFromReturns(returns []float64, riskFreeRate float64) Performance {
	perf := Performance{Days: len(returns)}
	if len(returns) < 2 {
		return perf
	}

	perf.AnnualizedReturn = formulas.CompoundAnnualReturn(returns)
	perf.Volatility = formulas.AnnualizedVolatility(returns)
	perf.SharpeRatio = formulas.SharpeRatio(returns, riskFreeRate)
	perf.SortinoRatio = formulas.Ratio(formulas.SortinoRatio(returns, riskFreeRate))
	perf.MaxDrawdown = formulas.MaxDrawdown(returns)
	perf.CalmarRatio = formulas.CalmarRatio(perf.AnnualizedReturn, perf.MaxDrawdown)

	perf.BestDay, perf.WorstDay = returns[0], returns[0]
	for _, r := range returns[1:] {
		if r > perf.BestDay {
			perf.BestDay = r
		}
		if r < perf.WorstDay {
			perf.WorstDay = r
		}
	}
	return perf
}

// MonthlyReturns groups a daily value series by calendar month
func MonthlyReturns(points []ValuationPoint) []MonthlyReturn {
	var months []MonthlyReturn
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		key := cur.Date.Format("2006-01")

		if len(months) == 0 || months[len(months)-1].Month != key {
			months = append(months, MonthlyReturn{Month: key, Return: 0, StartValue: prev.Value})
		}
		m := &months[len(months)-1]
		if prev.Value > 0 {
			m.Return = (1+m.Return)*(1+periodReturn(prev, cur)) - 1
		}
		m.EndValue = cur.Value
		m.NetFlow += cur.NetFlow
	}
	return months
}
