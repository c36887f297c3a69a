// Package handlers provides HTTP handlers for risk metrics operations.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
	"github.com/rs/zerolog"
)

// PortfolioLoader provides the current portfolio and its price history
type PortfolioLoader interface {
	Load(ctx context.Context) (*portfolio.Snapshot, error)
	History(ctx context.Context, symbols []string, benchmark, period string) (*domain.PriceTable, error)
}

// Handler handles risk metrics HTTP requests
type Handler struct {
	loader    PortfolioLoader
	engine    *risk.Engine
	period    string
	benchmark string
	log       zerolog.Logger
}

// NewHandler creates a new risk metrics handler.
// period is the default history lookback, overridable with ?period=.
func NewHandler(
	loader PortfolioLoader,
	engine *risk.Engine,
	period string,
	benchmark string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		loader:    loader,
		engine:    engine,
		period:    period,
		benchmark: benchmark,
		log:       log.With().Str("handler", "risk").Logger(),
	}
}

type portfolioRisk struct {
	series risk.Series
	period string
	value  float64
}

// getPortfolioRisk loads the portfolio and builds its weighted return series
func (h *Handler) getPortfolioRisk(r *http.Request) (*portfolioRisk, error) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = h.period
	}

	snap, err := h.loader.Load(r.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	weights := snap.Weights()
	if len(weights) == 0 {
		return &portfolioRisk{period: period}, nil
	}

	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}

	table, err := h.loader.History(r.Context(), symbols, h.benchmark, period)
	if err != nil {
		return nil, err
	}

	return &portfolioRisk{
		series: h.engine.PortfolioReturns(table, weights, h.benchmark),
		period: period,
		value:  snap.TotalMarketValue(),
	}, nil
}

// HandleGetPortfolioMetrics handles GET /api/risk/portfolio/metrics
func (h *Handler) HandleGetPortfolioMetrics(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio metrics", http.StatusInternalServerError)
		return
	}

	h.writeData(w, map[string]interface{}{
		"metrics":         h.engine.Metrics(pr.series.Returns, pr.series.Benchmark),
		"weights":         pr.series.Weights,
		"missing_symbols": pr.series.Missing,
		"benchmark":       h.benchmark,
		"portfolio_value": pr.value,
		"period":          pr.period,
	})
}

// HandleGetPortfolioVaR handles GET /api/risk/portfolio/var
func (h *Handler) HandleGetPortfolioVaR(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio VaR", http.StatusInternalServerError)
		return
	}

	m := h.engine.Metrics(pr.series.Returns, nil)
	h.writeData(w, map[string]interface{}{
		"var_5":           m.VaR5,
		"var_1":           m.VaR1,
		"var_95_amount":   -m.VaR5 * pr.value, // positive amount at risk
		"var_99_amount":   -m.VaR1 * pr.value,
		"portfolio_value": pr.value,
		"observations":    m.Observations,
		"method":          "historical",
		"period":          pr.period,
	})
}

// HandleGetPortfolioCVaR handles GET /api/risk/portfolio/cvar
func (h *Handler) HandleGetPortfolioCVaR(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio CVaR", http.StatusInternalServerError)
		return
	}

	m := h.engine.Metrics(pr.series.Returns, nil)

	// Contribution of each holding: weight times its own 5% CVaR
	contributions := []map[string]interface{}{}
	for j, symbol := range pr.series.Symbols {
		column := make([]float64, len(pr.series.Assets))
		for i, row := range pr.series.Assets {
			column[i] = row[j]
		}
		weight := pr.series.Weights[symbol]
		cvar := formulas.HistoricalCVaR(column, 5)
		contributions = append(contributions, map[string]interface{}{
			"symbol":       symbol,
			"weight":       weight,
			"cvar_5":       cvar,
			"contribution": weight * cvar,
		})
	}

	h.writeData(w, map[string]interface{}{
		"cvar_5":          m.CVaR5,
		"cvar_1":          m.CVaR1,
		"cvar_95_amount":  -m.CVaR5 * pr.value,
		"cvar_99_amount":  -m.CVaR1 * pr.value,
		"portfolio_value": pr.value,
		"contributions":   contributions,
		"period":          pr.period,
	})
}

// HandleGetPortfolioVolatility handles GET /api/risk/portfolio/volatility
func (h *Handler) HandleGetPortfolioVolatility(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio volatility", http.StatusInternalServerError)
		return
	}

	v := h.engine.Volatility(pr.series)
	h.writeData(w, map[string]interface{}{
		"volatility":     v.Annualized,
		"annualized":     true,
		"rolling_window": v.Window,
		"rolling":        v.Rolling,
		"period":         pr.period,
	})
}

// HandleGetPortfolioSharpe handles GET /api/risk/portfolio/sharpe
func (h *Handler) HandleGetPortfolioSharpe(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio Sharpe", http.StatusInternalServerError)
		return
	}

	m := h.engine.Metrics(pr.series.Returns, nil)
	h.writeData(w, map[string]interface{}{
		"sharpe_ratio":   m.SharpeRatio,
		"return":         m.AnnualizedReturn,
		"volatility":     m.Volatility,
		"risk_free_rate": m.RiskFreeRate,
		"period":         pr.period,
	})
}

// HandleGetPortfolioSortino handles GET /api/risk/portfolio/sortino
func (h *Handler) HandleGetPortfolioSortino(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio Sortino", http.StatusInternalServerError)
		return
	}

	m := h.engine.Metrics(pr.series.Returns, nil)
	h.writeData(w, map[string]interface{}{
		"sortino_ratio":      m.SortinoRatio,
		"downside_deviation": m.DownsideDeviation,
		"risk_free_rate":     m.RiskFreeRate,
		"period":             pr.period,
	})
}

// HandleGetPortfolioMaxDrawdown handles GET /api/risk/portfolio/max-drawdown
func (h *Handler) HandleGetPortfolioMaxDrawdown(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate portfolio drawdown", http.StatusInternalServerError)
		return
	}

	dd := h.engine.Drawdown(pr.series)
	if dd == nil {
		dd = &formulas.DrawdownMetrics{}
	}
	m := h.engine.Metrics(pr.series.Returns, nil)

	h.writeData(w, map[string]interface{}{
		"max_drawdown":     dd.MaxDrawdown,
		"current_drawdown": dd.CurrentDrawdown,
		"days_in_drawdown": dd.DaysInDrawdown,
		"calmar_ratio":     m.CalmarRatio,
		"period":           pr.period,
	})
}

// HandleGetCorrelation handles GET /api/risk/portfolio/correlation
func (h *Handler) HandleGetCorrelation(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate correlation matrix", http.StatusInternalServerError)
		return
	}

	h.writeData(w, h.engine.CorrelationMatrix(pr.series))
}

// HandleGetDecomposition handles GET /api/risk/portfolio/decomposition
func (h *Handler) HandleGetDecomposition(w http.ResponseWriter, r *http.Request) {
	pr, err := h.getPortfolioRisk(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get portfolio returns")
		http.Error(w, "Failed to calculate risk decomposition", http.StatusInternalServerError)
		return
	}

	h.writeData(w, h.engine.Decompose(pr.series))
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
