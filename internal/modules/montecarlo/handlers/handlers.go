// Package handlers provides HTTP handlers for Monte Carlo simulation.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	"github.com/rs/zerolog"
)

const (
	maxPaths   = 100000
	maxHorizon = 2520
)

// PortfolioLoader provides the current portfolio and its price history
type PortfolioLoader interface {
	Load(ctx context.Context) (*portfolio.Snapshot, error)
	History(ctx context.Context, symbols []string, benchmark, period string) (*domain.PriceTable, error)
}

// Defaults are the simulation parameters used when a request omits them
type Defaults struct {
	Paths       int
	HorizonDays int
	Period      string
}

// Handler handles simulation HTTP requests
type Handler struct {
	loader    PortfolioLoader
	engine    *risk.Engine
	simulator *montecarlo.Simulator
	defaults  Defaults
	log       zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(
	loader PortfolioLoader,
	engine *risk.Engine,
	simulator *montecarlo.Simulator,
	defaults Defaults,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		loader:    loader,
		engine:    engine,
		simulator: simulator,
		defaults:  defaults,
		log:       log.With().Str("handler", "simulation").Logger(),
	}
}

// simulationRequest overrides the defaults. Without weights the current
// portfolio's market-value weights are used.
type simulationRequest struct {
	Weights      map[string]float64 `json:"weights"`
	HorizonDays  int                `json:"horizon_days"`
	NumPaths     int                `json:"num_paths"`
	Seed         *uint64            `json:"seed"`
	Period       string             `json:"period"`
	IncludePaths bool               `json:"include_paths"`
}

type scenariosRequest struct {
	Scenarios []montecarlo.Scenario `json:"scenarios"`
	Seed      *uint64               `json:"seed"`
}

// HandleSimulate handles POST /api/simulation
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = h.defaults.HorizonDays
	}
	if req.NumPaths == 0 {
		req.NumPaths = h.defaults.Paths
	}
	if req.Period == "" {
		req.Period = h.defaults.Period
	}
	if req.HorizonDays < 0 || req.HorizonDays > maxHorizon || req.NumPaths < 0 || req.NumPaths > maxPaths {
		h.writeError(w, http.StatusBadRequest, "horizon_days must be 1-2520 and num_paths 1-100000")
		return
	}
	if !h.simulator.WithinBudget(req.NumPaths, req.HorizonDays) {
		h.writeError(w, http.StatusBadRequest, h.budgetMessage())
		return
	}

	weights := req.Weights
	if len(weights) == 0 {
		snap, err := h.loader.Load(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to load portfolio")
			h.writeError(w, http.StatusInternalServerError, "Failed to load portfolio")
			return
		}
		weights = snap.Weights()
	}

	symbols := make([]string, 0, len(weights))
	for s := range weights {
		symbols = append(symbols, s)
	}
	table, err := h.loader.History(r.Context(), symbols, "", req.Period)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get price history")
		h.writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	series := h.engine.PortfolioReturns(table, weights, "")
	vector := make([]float64, len(series.Symbols))
	for i, s := range series.Symbols {
		vector[i] = series.Weights[s]
	}

	result, err := h.simulator.Simulate(series.Assets, vector, montecarlo.Config{
		HorizonDays:  req.HorizonDays,
		NumPaths:     req.NumPaths,
		Seed:         req.Seed,
		IncludePaths: req.IncludePaths,
	})
	if err != nil {
		if errors.Is(err, montecarlo.ErrInsufficientHistory) || errors.Is(err, montecarlo.ErrNoAssets) || errors.Is(err, montecarlo.ErrInvalidConfig) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Simulation failed")
		h.writeError(w, http.StatusInternalServerError, "Simulation failed")
		return
	}
	result.Symbols = series.Symbols

	h.writeData(w, map[string]interface{}{
		"simulation":      result,
		"risk_model":      montecarlo.ModelRisk(series.Returns),
		"missing_symbols": series.Missing,
		"period":          req.Period,
	})
}

// HandleScenarios handles POST /api/simulation/scenarios
func (h *Handler) HandleScenarios(w http.ResponseWriter, r *http.Request) {
	var req scenariosRequest
	if err := decodeOptional(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	scenarios := req.Scenarios
	if len(scenarios) == 0 {
		scenarios = montecarlo.DefaultScenarios(h.defaults.HorizonDays, h.defaults.Paths)
	}
	for i := range scenarios {
		if scenarios[i].HorizonDays == 0 {
			scenarios[i].HorizonDays = h.defaults.HorizonDays
		}
		if scenarios[i].NumPaths == 0 {
			scenarios[i].NumPaths = h.defaults.Paths
		}
		if scenarios[i].HorizonDays > maxHorizon || scenarios[i].NumPaths > maxPaths {
			h.writeError(w, http.StatusBadRequest, "horizon_days must be 1-2520 and num_paths 1-100000")
			return
		}
		if !h.simulator.WithinBudget(scenarios[i].NumPaths, scenarios[i].HorizonDays) {
			h.writeError(w, http.StatusBadRequest, h.budgetMessage())
			return
		}
	}

	results, err := h.simulator.Scenarios(r.Context(), scenarios, req.Seed)
	if err != nil {
		if errors.Is(err, montecarlo.ErrInvalidConfig) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Scenario analysis failed")
		h.writeError(w, http.StatusInternalServerError, "Scenario analysis failed")
		return
	}

	h.writeData(w, map[string]interface{}{
		"scenarios": results,
	})
}

func (h *Handler) budgetMessage() string {
	return fmt.Sprintf("num_paths × horizon_days must not exceed %d", h.simulator.MaxDraws())
}

// decodeOptional decodes a JSON body, treating an empty body as the zero value
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) writeData(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
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
