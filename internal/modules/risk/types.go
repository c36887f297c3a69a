package risk

import (
	"time"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// Metrics is the risk summary of one return series.
// VaR and CVaR are return fractions (negative for losses): VaR5/CVaR5 at the
// 5th percentile, VaR1/CVaR1 at the 1st.
type Metrics struct {
	Observations      int            `json:"observations"`
	RiskFreeRate      float64        `json:"risk_free_rate"`
	AnnualizedReturn  float64        `json:"annualized_return"`
	Volatility        float64        `json:"volatility"`
	DownsideDeviation float64        `json:"downside_deviation"`
	SharpeRatio       float64        `json:"sharpe_ratio"`
	SortinoRatio      formulas.Ratio `json:"sortino_ratio"`
	CalmarRatio       float64        `json:"calmar_ratio"`
	MaxDrawdown       float64        `json:"max_drawdown"`
	VaR5              float64        `json:"var_5"`
	CVaR5             float64        `json:"cvar_5"`
	VaR1              float64        `json:"var_1"`
	CVaR1             float64        `json:"cvar_1"`
	Skewness          float64        `json:"skewness"`
	Kurtosis          float64        `json:"kurtosis"`
	HasBenchmark      bool           `json:"has_benchmark"`
	Beta              float64        `json:"beta"`
	TrackingError     float64        `json:"tracking_error"`
}

// RollingPoint is one value of the rolling volatility series
type RollingPoint struct {
	Date       time.Time `json:"date"`
	Volatility float64   `json:"volatility"`
}

// VolatilityReport is the annualized volatility plus its rolling history
type VolatilityReport struct {
	Annualized float64        `json:"annualized"`
	Window     int            `json:"window"`
	Rolling    []RollingPoint `json:"rolling"`
}

// CorrelationMatrix holds pairwise Pearson correlations.
// Values[i][j] is the correlation of Symbols[i] and Symbols[j].
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

// Get returns the correlation of two symbols in the matrix
func (c CorrelationMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, s := range c.Symbols {
		if s == a {
			i = k
		}
		if s == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return c.Values[i][j], true
}

// AssetRisk is one holding's share of portfolio risk
type AssetRisk struct {
	Symbol               string  `json:"symbol"`
	Weight               float64 `json:"weight"`
	Volatility           float64 `json:"volatility"`
	MarginalContribution float64 `json:"marginal_contribution"`
	RiskContribution     float64 `json:"risk_contribution"` // fraction of total, sums to 1
}

// Decomposition splits portfolio volatility across holdings
type Decomposition struct {
	PortfolioVolatility  float64     `json:"portfolio_volatility"`
	AverageCorrelation   float64     `json:"avg_correlation"`
	DiversificationRatio float64     `json:"diversification_ratio"`
	Assets               []AssetRisk `json:"assets"`
}
