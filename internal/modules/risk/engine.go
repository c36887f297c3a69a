// Package risk computes portfolio risk and risk-adjusted return metrics from
// historical price data.
package risk

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// RollingWindow is the lookback of the rolling volatility series
const RollingWindow = 21

// Series is a weighted portfolio return series aligned with its benchmark
type Series struct {
	Dates     []time.Time        `json:"dates"`
	Returns   []float64          `json:"returns"`
	Benchmark []float64          `json:"benchmark,omitempty"` // nil without benchmark data
	Symbols   []string           `json:"symbols"`
	Weights   map[string]float64 `json:"weights"` // renormalized over Symbols
	Missing   []string           `json:"missing,omitempty"`
	Assets    [][]float64        `json:"-"` // per-date asset returns, columns follow Symbols
}

// Engine computes risk metrics. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewEngine creates a risk engine using riskFreeRate for the ratios
func NewEngine(riskFreeRate float64, log zerolog.Logger) *Engine {
	return &Engine{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "risk").Logger(),
	}
}

// RiskFreeRate returns the annual rate used by the ratios
func (e *Engine) RiskFreeRate() float64 {
	return e.riskFreeRate
}

// PortfolioReturns weights the aligned daily returns of the symbols in
// weights. Symbols without price history are dropped and the remaining
// weights renormalized to sum to 1; the dropped symbols are listed in
// Series.Missing and logged as a warning. The benchmark, when present in
// table, shares the portfolio's dates.
func (e *Engine) PortfolioReturns(table *domain.PriceTable, weights map[string]float64, benchmark string) Series {
	var symbols, missing []string
	total := 0.0
	for symbol, w := range weights {
		if w <= 0 {
			continue
		}
		if table == nil || !table.Has(symbol) {
			missing = append(missing, symbol)
			continue
		}
		symbols = append(symbols, symbol)
		total += w
	}
	sort.Strings(symbols)
	sort.Strings(missing)

	if len(missing) > 0 {
		e.log.Warn().Strs("symbols", missing).Msg("No price history for symbols, dropping them from the portfolio")
	}

	series := Series{Symbols: symbols, Missing: missing, Weights: make(map[string]float64, len(symbols))}
	if len(symbols) == 0 || total <= 0 {
		return series
	}
	for _, s := range symbols {
		series.Weights[s] = weights[s] / total
	}

	columns := symbols
	withBenchmark := benchmark != "" && table.Has(benchmark)
	if withBenchmark {
		columns = append(append([]string{}, symbols...), benchmark)
	}

	dates, matrix := table.ReturnMatrix(columns)
	if len(matrix) == 0 && withBenchmark {
		// the benchmark may not overlap the holdings at all
		e.log.Warn().Str("benchmark", benchmark).Msg("Benchmark does not overlap portfolio history, ignoring it")
		withBenchmark = false
		columns = symbols
		dates, matrix = table.ReturnMatrix(columns)
	}

	series.Dates = dates
	series.Returns = make([]float64, len(matrix))
	series.Assets = make([][]float64, len(matrix))
	if withBenchmark {
		series.Benchmark = make([]float64, len(matrix))
	}
	for i, row := range matrix {
		r := 0.0
		for j, s := range symbols {
			r += series.Weights[s] * row[j]
		}
		series.Returns[i] = r
		series.Assets[i] = row[:len(symbols)]
		if withBenchmark {
			series.Benchmark[i] = row[len(symbols)]
		}
	}
	return series
}

// Metrics computes the full metric set for a return series and an optional
// benchmark of the same length. Fewer than two observations give neutral
// zero values.
func (e *Engine) Metrics(returns, benchmark []float64) Metrics {
	m := Metrics{Observations: len(returns), RiskFreeRate: e.riskFreeRate}
	if len(returns) < 2 {
		return m
	}

	m.AnnualizedReturn = formulas.AnnualizedMeanReturn(returns)
	m.Volatility = formulas.AnnualizedVolatility(returns)
	m.SharpeRatio = formulas.SharpeRatio(returns, e.riskFreeRate)
	m.SortinoRatio = formulas.Ratio(formulas.SortinoRatio(returns, e.riskFreeRate))
	m.DownsideDeviation = formulas.DownsideDeviation(returns)
	m.MaxDrawdown = formulas.MaxDrawdown(returns)
	m.CalmarRatio = formulas.CalmarRatio(m.AnnualizedReturn, m.MaxDrawdown)
	m.VaR5 = formulas.HistoricalVaR(returns, 5)
	m.CVaR5 = formulas.HistoricalCVaR(returns, 5)
	m.VaR1 = formulas.HistoricalVaR(returns, 1)
	m.CVaR1 = formulas.HistoricalCVaR(returns, 1)
	m.Skewness = formulas.Skewness(returns)
	m.Kurtosis = formulas.ExcessKurtosis(returns)

	if len(benchmark) == len(returns) {
		m.HasBenchmark = true
		m.Beta = formulas.Beta(returns, benchmark)
		m.TrackingError = formulas.TrackingError(returns, benchmark)
	}
	return m
}

// Volatility returns the annualized volatility and its rolling series
func (e *Engine) Volatility(s Series) VolatilityReport {
	report := VolatilityReport{
		Annualized: formulas.AnnualizedVolatility(s.Returns),
		Window:     RollingWindow,
	}
	rolling := formulas.RollingVolatility(s.Returns, RollingWindow)
	for i, v := range rolling {
		report.Rolling = append(report.Rolling, RollingPoint{Date: s.Dates[i+RollingWindow-1], Volatility: v})
	}
	return report
}

// Drawdown describes the drawdown path of the portfolio
func (e *Engine) Drawdown(s Series) *formulas.DrawdownMetrics {
	return formulas.CalculateDrawdownMetrics(formulas.CumulativeValues(s.Returns))
}
