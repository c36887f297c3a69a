// Package handlers provides HTTP handlers for the valued portfolio.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// SnapshotLoader provides the current portfolio; *portfolio.PortfolioService
// satisfies it
type SnapshotLoader interface {
	Load(ctx context.Context) (*portfolio.Snapshot, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	loader SnapshotLoader
	log    zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(loader SnapshotLoader, log zerolog.Logger) *Handler {
	return &Handler{
		loader: loader,
		log:    log.With().Str("handler", "portfolio").Logger(),
	}
}

// PositionValue is one open position priced at the current quote
type PositionValue struct {
	Symbol        string   `json:"symbol"`
	Quantity      float64  `json:"quantity"`
	AvgCost       float64  `json:"avg_cost"`
	CostBasis     float64  `json:"cost_basis"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketValue   float64  `json:"market_value"`
	UnrealizedPnL float64  `json:"unrealized_pnl"`
	Weight        float64  `json:"weight"`
}

// PortfolioValue is the priced state of the portfolio
type PortfolioValue struct {
	AsOf          time.Time       `json:"as_of"`
	Positions     []PositionValue `json:"positions"`
	MarketValue   float64         `json:"market_value"`
	CostBasis     float64         `json:"cost_basis"`
	UnrealizedPnL float64         `json:"unrealized_pnl"`
	CashBalance   float64         `json:"cash_balance"`
	TotalValue    float64         `json:"total_value"`
	MissingPrices []string        `json:"missing_prices,omitempty"`
}

// Concentration describes how the market value is spread over positions.
// Weights are fractions of the priced market value.
type Concentration struct {
	HerfindahlIndex    float64 `json:"herfindahl_index"`
	EffectivePositions float64 `json:"effective_positions"`
	Top5Weight         float64 `json:"top_5_weight"`
	Top10Weight        float64 `json:"top_10_weight"`
	LargestSymbol      string  `json:"largest_symbol,omitempty"`
	LargestWeight      float64 `json:"largest_weight"`
	NumPositions       int     `json:"num_positions"`
}

// Value prices every open position of snap
func Value(snap *portfolio.Snapshot) PortfolioValue {
	total := snap.TotalMarketValue()
	out := PortfolioValue{
		AsOf:          snap.AsOf,
		Positions:     make([]PositionValue, 0, len(snap.Positions)),
		MarketValue:   total,
		CashBalance:   snap.CashBalance.InexactFloat64(),
		MissingPrices: snap.MissingPrices,
	}

	for _, p := range snap.Positions {
		pv := PositionValue{
			Symbol:    p.Symbol,
			Quantity:  p.Quantity().InexactFloat64(),
			AvgCost:   p.AverageCost().InexactFloat64(),
			CostBasis: p.Cost().InexactFloat64(),
		}
		out.CostBasis += pv.CostBasis

		if price, ok := snap.Prices[p.Symbol]; ok {
			current := price
			pv.CurrentPrice = &current
			pv.MarketValue = pv.Quantity * price
			pv.UnrealizedPnL = pv.MarketValue - pv.CostBasis
			if total > 0 {
				pv.Weight = pv.MarketValue / total
			}
			out.UnrealizedPnL += pv.UnrealizedPnL
		}
		out.Positions = append(out.Positions, pv)
	}

	sort.SliceStable(out.Positions, func(i, j int) bool {
		return out.Positions[i].MarketValue > out.Positions[j].MarketValue
	})

	out.TotalValue = out.MarketValue + out.CashBalance
	return out
}

// Concentrate computes concentration metrics over market-value weights.
// Unpriced positions carry no weight and are not counted.
func Concentrate(weights map[string]float64) Concentration {
	type entry struct {
		symbol string
		weight float64
	}

	entries := make([]entry, 0, len(weights))
	for symbol, w := range weights {
		if w > 0 {
			entries = append(entries, entry{symbol, w})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].symbol < entries[j].symbol
	})

	c := Concentration{NumPositions: len(entries)}
	for i, e := range entries {
		c.HerfindahlIndex += e.weight * e.weight
		if i < 5 {
			c.Top5Weight += e.weight
		}
		if i < 10 {
			c.Top10Weight += e.weight
		}
	}
	if len(entries) > 0 {
		c.LargestSymbol = entries[0].symbol
		c.LargestWeight = entries[0].weight
	}
	if c.HerfindahlIndex > 0 {
		c.EffectivePositions = 1 / c.HerfindahlIndex
	}
	return c
}

// HandleGetPortfolio handles GET /api/portfolio
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, Value(snap))
}

// HandleGetConcentration handles GET /api/portfolio/concentration
func (h *Handler) HandleGetConcentration(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.load(w, r)
	if !ok {
		return
	}
	h.writeData(w, http.StatusOK, Concentrate(snap.Weights()))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*portfolio.Snapshot, bool) {
	snap, err := h.loader.Load(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load portfolio")
		h.writeError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return nil, false
	}
	return snap, true
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
