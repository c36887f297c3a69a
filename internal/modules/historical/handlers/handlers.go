// Package handlers provides HTTP handlers for stored price history.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/historical"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
	"github.com/rs/zerolog"
)

// Handler handles historical data HTTP requests
type Handler struct {
	store *historical.PriceStore
	log   zerolog.Logger
}

// NewHandler creates a new historical data handler
func NewHandler(store *historical.PriceStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "historical").Logger(),
	}
}

// HandleGetDailyPrices handles GET /api/historical/prices/daily/{symbol}
func (h *Handler) HandleGetDailyPrices(w http.ResponseWriter, r *http.Request, symbol string) {
	limit := parseLimit(r, 100)

	prices, err := h.store.GetRecent(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"prices": prices,
		"count":  len(prices),
	})
}

// HandleGetLatestPrice handles GET /api/historical/prices/latest/{symbol}
func (h *Handler) HandleGetLatestPrice(w http.ResponseWriter, r *http.Request, symbol string) {
	latest, err := h.store.Latest(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get latest price")
		http.Error(w, "Failed to get latest price", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"price":  latest,
	})
}

// HandleGetPriceRange handles GET /api/historical/prices/range?symbols=A,B&limit=N
func (h *Handler) HandleGetPriceRange(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	if len(symbols) == 0 {
		http.Error(w, "symbols parameter is required", http.StatusBadRequest)
		return
	}
	limit := parseLimit(r, 100)

	pricesBySymbol := make(map[string][]domain.DailyPrice, len(symbols))
	for _, symbol := range symbols {
		prices, err := h.store.GetRecent(symbol, limit)
		if err != nil {
			h.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get prices for symbol")
			continue
		}
		pricesBySymbol[symbol] = prices
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"prices": pricesBySymbol,
	})
}

// HandleGetDailyReturns handles GET /api/historical/returns/daily/{symbol}
func (h *Handler) HandleGetDailyReturns(w http.ResponseWriter, r *http.Request, symbol string) {
	limit := parseLimit(r, 100)

	// One extra bar for the first return
	prices, err := h.store.GetRecent(symbol, limit+1)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get daily prices")
		http.Error(w, "Failed to get daily prices", http.StatusInternalServerError)
		return
	}

	returns := calculateReturns(prices)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"returns": returns,
		"count":   len(returns),
	})
}

// HandleGetCorrelationMatrix handles GET /api/historical/returns/correlation-matrix?symbols=A,B&days=N
func (h *Handler) HandleGetCorrelationMatrix(w http.ResponseWriter, r *http.Request) {
	symbols := parseSymbols(r)
	days := 365
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}

	from := time.Now().UTC().AddDate(0, 0, -days)
	series := make(map[string][]domain.PricePoint, len(symbols))
	for _, symbol := range symbols {
		prices, err := h.store.GetRange(symbol, from)
		if err != nil {
			h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get price range")
			http.Error(w, "Failed to get price range", http.StatusInternalServerError)
			return
		}
		series[symbol] = domain.PricePoints(prices)
	}

	table := domain.NewPriceTable(series)
	available := table.Symbols()
	_, columns := table.ReturnMatrix(available)

	matrix := make(map[string]map[string]float64, len(available))
	if columns != nil {
		for i, a := range available {
			row := make(map[string]float64, len(available))
			for j, b := range available {
				if i == j {
					row[b] = 1
					continue
				}
				row[b] = formulas.Correlation(columns[i], columns[j])
			}
			matrix[a] = row
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"correlation_matrix": matrix,
		"symbols":            available,
	})
}

// writeJSON writes a JSON response in the standard envelope
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func parseLimit(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func parseSymbols(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return nil
	}

	var symbols []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// calculateReturns computes simple returns from bars ordered newest first
func calculateReturns(prices []domain.DailyPrice) []map[string]interface{} {
	returns := make([]map[string]interface{}, 0)

	for i := 0; i < len(prices)-1; i++ {
		current := prices[i].Adjusted()
		previous := prices[i+1].Adjusted()

		if previous > 0 {
			returns = append(returns, map[string]interface{}{
				"date":   prices[i].Date.Format("2006-01-02"),
				"return": (current - previous) / previous,
			})
		}
	}

	return returns
}
