package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
)

// PortfolioLoader provides the current portfolio and its price history
type PortfolioLoader interface {
	Load(ctx context.Context) (*portfolio.Snapshot, error)
	History(ctx context.Context, symbols []string, benchmark, period string) (*domain.PriceTable, error)
}

// Cache stores rendered reports; *clientdata.Repository satisfies it
type Cache interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
}

// Options select what goes into a report
type Options struct {
	Period      string
	Benchmark   string
	Simulate    bool
	HorizonDays int
	NumPaths    int
	Seed        *uint64
}

func (o Options) cacheKey() string {
	seed := "random"
	if o.Seed != nil {
		seed = strconv.FormatUint(*o.Seed, 10)
	}
	return fmt.Sprintf("report:%s:%s:%t:%d:%d:%s", o.Period, o.Benchmark, o.Simulate, o.HorizonDays, o.NumPaths, seed)
}

// cachedReport is the cache entry for a generated report
type cachedReport struct {
	ID          string    `msgpack:"id"`
	GeneratedAt time.Time `msgpack:"generated_at"`
	Body        []byte    `msgpack:"body"` // JSON-encoded Report
}

// Service generates performance reports.
//
// Responsibilities:
//   - Load the portfolio snapshot and price history
//   - Run the return, risk and simulation engines
//   - Merge the results with Build
//
// A failure to load the portfolio fails the report. Missing price history
// degrades to neutral metrics with a warning, and a simulation that cannot
// be trusted is listed under Unavailable.
type Service struct {
	loader     PortfolioLoader
	calculator *returns.Calculator
	engine     *risk.Engine
	simulator  *montecarlo.Simulator
	cache      Cache // optional
	log        zerolog.Logger
}

// NewService creates a new report service. cache may be nil.
func NewService(
	loader PortfolioLoader,
	calculator *returns.Calculator,
	engine *risk.Engine,
	simulator *montecarlo.Simulator,
	cache Cache,
	log zerolog.Logger,
) *Service {
	return &Service{
		loader:     loader,
		calculator: calculator,
		engine:     engine,
		simulator:  simulator,
		cache:      cache,
		log:        log.With().Str("service", "report").Logger(),
	}
}

// Cached returns a fresh cached report for opts, if any
func (s *Service) Cached(opts Options) (*Report, bool) {
	if s.cache == nil {
		return nil, false
	}

	var entry cachedReport
	found, err := s.cache.GetIfFresh(clientdata.TableReports, opts.cacheKey(), &entry)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read report cache")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var r Report
	if err := json.Unmarshal(entry.Body, &r); err != nil {
		s.log.Warn().Err(err).Str("id", entry.ID).Msg("Discarding unreadable cached report")
		return nil, false
	}
	return &r, true
}

// Generate builds a new report and caches it
func (s *Service) Generate(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	summary := ledger.Summarize(snap.Transactions)
	unavailable := make(map[string]string)
	var warnings []string

	// Closed positions still need prices for the historical value series
	table, err := s.loader.History(ctx, summary.Symbols, opts.Benchmark, opts.Period)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warn().Err(err).Msg("Price history unavailable, risk metrics will be neutral")
		warnings = append(warnings, "price history unavailable: "+err.Error())
		table = domain.NewPriceTable(nil)
	}

	ret := s.calculator.Calculate(returns.Input{
		Transactions:   snap.Transactions,
		RealizedTrades: snap.RealizedTrades,
		CurrentValue:   snap.TotalMarketValue(),
		ValuationDate:  snap.AsOf,
		Price:          markToMarket(table, snap.Transactions, snap.Prices),
		Dates:          table.Dates(),
	})

	series := s.engine.PortfolioReturns(table, snap.Weights(), opts.Benchmark)
	for _, symbol := range series.Missing {
		warnings = append(warnings, "no price history for "+symbol)
	}
	if opts.Benchmark != "" && series.Benchmark == nil && len(series.Returns) > 0 {
		warnings = append(warnings, "benchmark "+opts.Benchmark+" unavailable, beta and tracking error are neutral")
	}
	metrics := s.engine.Metrics(series.Returns, series.Benchmark)

	var sim *montecarlo.Result
	if opts.Simulate {
		sim, err = s.simulate(series, opts)
		if err != nil {
			s.log.Warn().Err(err).Msg("Simulation unavailable")
			unavailable["simulation"] = err.Error()
		}
	}

	r := Build(Inputs{
		ID:          uuid.New().String(),
		GeneratedAt: snap.AsOf,
		Period:      opts.Period,
		Benchmark:   opts.Benchmark,
		Snapshot:    snap,
		Returns:     ret,
		Risk:        metrics,
		Simulation:  sim,
		Costs:       ledger.AnalyzeCosts(snap.Transactions),
		Activity:    ledger.AnalyzeActivity(snap.Transactions),
		Summary:     summary,
		Warnings:    warnings,
		Unavailable: unavailable,
	})

	s.store(opts, r)

	s.log.Info().
		Str("id", r.ID).
		Int("positions", len(r.Positions)).
		Int("warnings", len(r.Warnings)).
		Int("unavailable", len(r.Unavailable)).
		Dur("took", time.Since(start)).
		Msg("Report generated")

	return r, nil
}

func (s *Service) simulate(series risk.Series, opts Options) (*montecarlo.Result, error) {
	if len(series.Symbols) == 0 {
		return nil, montecarlo.ErrNoAssets
	}

	weights := make([]float64, len(series.Symbols))
	for i, symbol := range series.Symbols {
		weights[i] = series.Weights[symbol]
	}

	res, err := s.simulator.Simulate(series.Assets, weights, montecarlo.Config{
		HorizonDays: opts.HorizonDays,
		NumPaths:    opts.NumPaths,
		Seed:        opts.Seed,
	})
	if err != nil {
		if errors.Is(err, montecarlo.ErrInsufficientHistory) || errors.Is(err, montecarlo.ErrInvalidConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	res.Symbols = series.Symbols
	return res, nil
}

func (s *Service) store(opts Options, r *Report) {
	if s.cache == nil {
		return
	}

	body, err := json.Marshal(r)
	if err != nil {
		s.log.Warn().Err(err).Str("id", r.ID).Msg("Failed to encode report for cache")
		return
	}

	entry := cachedReport{ID: r.ID, GeneratedAt: r.GeneratedAt, Body: body}
	if err := s.cache.Store(clientdata.TableReports, opts.cacheKey(), entry, clientdata.TTLReport); err != nil {
		s.log.Warn().Err(err).Str("id", r.ID).Msg("Failed to cache report")
	}
}
