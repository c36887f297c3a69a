// Package handlers provides HTTP handlers for performance reports.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/report"
	"github.com/rs/zerolog"
)

const (
	maxPaths   = 100000
	maxHorizon = 2520
)

// Generator produces reports; *report.Service satisfies it
type Generator interface {
	Generate(ctx context.Context, opts report.Options) (*report.Report, error)
	Cached(opts report.Options) (*report.Report, bool)
}

// Archiver uploads a report and returns the object key
type Archiver interface {
	Archive(ctx context.Context, r *report.Report) (string, error)
}

// Defaults are the report options used when a request omits them
type Defaults struct {
	Period      string
	Benchmark   string
	HorizonDays int
	NumPaths    int
	MaxDraws    int // paths × horizon budget; 0 uses montecarlo.DefaultMaxDraws
}

// Handler handles report HTTP requests
type Handler struct {
	generator Generator
	archiver  Archiver // nil when archive storage is not configured
	defaults  Defaults
	log       zerolog.Logger
}

// NewHandler creates a new report handler. archiver may be nil.
func NewHandler(generator Generator, archiver Archiver, defaults Defaults, log zerolog.Logger) *Handler {
	return &Handler{
		generator: generator,
		archiver:  archiver,
		defaults:  defaults,
		log:       log.With().Str("handler", "report").Logger(),
	}
}

// HandleGetReport handles GET /api/report
//
// Query parameters: period, benchmark ("none" disables it), simulate,
// horizon_days, num_paths, seed, refresh.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	opts, refresh, err := h.parseOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !refresh {
		if cached, ok := h.generator.Cached(opts); ok {
			h.writeReport(w, cached, true)
			return
		}
	}

	rep, err := h.generator.Generate(r.Context(), opts)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate report")
		h.writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	h.writeReport(w, rep, false)
}

// HandleArchiveReport handles POST /api/report/archive.
// It archives a freshly generated report built from the same query parameters.
func (h *Handler) HandleArchiveReport(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		h.writeError(w, http.StatusServiceUnavailable, "Report archive storage is not configured")
		return
	}

	opts, _, err := h.parseOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.generator.Generate(r.Context(), opts)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate report")
		h.writeError(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	key, err := h.archiver.Archive(r.Context(), rep)
	if err != nil {
		h.log.Error().Err(err).Str("id", rep.ID).Msg("Failed to archive report")
		h.writeError(w, http.StatusBadGateway, "Failed to archive report")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]interface{}{
			"id":  rep.ID,
			"key": key,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) parseOptions(r *http.Request) (report.Options, bool, error) {
	q := r.URL.Query()
	opts := report.Options{
		Period:      h.defaults.Period,
		Benchmark:   h.defaults.Benchmark,
		Simulate:    true,
		HorizonDays: h.defaults.HorizonDays,
		NumPaths:    h.defaults.NumPaths,
	}

	if v := q.Get("period"); v != "" {
		opts.Period = v
	}
	if v := q.Get("benchmark"); v != "" {
		opts.Benchmark = strings.ToUpper(v)
		if opts.Benchmark == "NONE" {
			opts.Benchmark = ""
		}
	}
	if v := q.Get("simulate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, false, errInvalid("simulate")
		}
		opts.Simulate = b
	}
	if v := q.Get("horizon_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxHorizon {
			return opts, false, errInvalid("horizon_days")
		}
		opts.HorizonDays = n
	}
	if v := q.Get("num_paths"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPaths {
			return opts, false, errInvalid("num_paths")
		}
		opts.NumPaths = n
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, false, errInvalid("seed")
		}
		opts.Seed = &seed
	}

	if opts.Simulate {
		budget := h.defaults.MaxDraws
		if budget <= 0 {
			budget = montecarlo.DefaultMaxDraws
		}
		if opts.HorizonDays > 0 && opts.NumPaths > budget/opts.HorizonDays {
			return opts, false, fmt.Errorf("num_paths × horizon_days must not exceed %d", budget)
		}
	}

	refresh := false
	if v := q.Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, false, errInvalid("refresh")
		}
		refresh = b
	}

	return opts, refresh, nil
}

type errInvalid string

func (e errInvalid) Error() string {
	return "invalid " + string(e) + " parameter"
}

func (h *Handler) writeReport(w http.ResponseWriter, rep *report.Report, cached bool) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rep,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"cached":    cached,
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
