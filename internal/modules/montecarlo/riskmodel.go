package montecarlo

import (
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// RiskModel is the tail-risk profile of a historical return series.
// VaR and CVaR are return fractions at the 95% and 99% confidence levels.
type RiskModel struct {
	Observations int     `json:"observations"`
	VaR95        float64 `json:"var_95"`
	CVaR95       float64 `json:"cvar_95"`
	VaR99        float64 `json:"var_99"`
	CVaR99       float64 `json:"cvar_99"`
	Volatility   float64 `json:"volatility"`
	Skewness     float64 `json:"skewness"`
	Kurtosis     float64 `json:"kurtosis"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// ModelRisk profiles returns; fewer than two observations give zeros
func ModelRisk(returns []float64) RiskModel {
	m := RiskModel{Observations: len(returns)}
	if len(returns) < 2 {
		return m
	}
	m.VaR95 = formulas.HistoricalVaR(returns, 5)
	m.CVaR95 = formulas.HistoricalCVaR(returns, 5)
	m.VaR99 = formulas.HistoricalVaR(returns, 1)
	m.CVaR99 = formulas.HistoricalCVaR(returns, 1)
	m.Volatility = formulas.AnnualizedVolatility(returns)
	m.Skewness = formulas.Skewness(returns)
	m.Kurtosis = formulas.ExcessKurtosis(returns)
	m.MaxDrawdown = formulas.MaxDrawdown(returns)
	return m
}
