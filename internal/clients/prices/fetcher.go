// Package prices assembles market data for the analytics modules from a
// remote source, the history store and the quote cache.
package prices

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrNoData is returned when none of the requested symbols has prices
var ErrNoData = errors.New("no price data available")

// Source is a remote market-data backend
type Source interface {
	GetHistory(ctx context.Context, symbol, period string) ([]domain.DailyPrice, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// BatchFetcher fans requests out over a bounded worker pool behind a shared
// rate limit. Per-symbol failures are collected, not fatal.
type BatchFetcher struct {
	source  Source
	workers int
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewBatchFetcher creates a fetcher allowing perMinute requests with at most
// workers in flight. perMinute <= 0 disables rate limiting.
func NewBatchFetcher(source Source, workers, perMinute int, log zerolog.Logger) *BatchFetcher {
	if workers <= 0 {
		workers = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), workers)
	}

	return &BatchFetcher{
		source:  source,
		workers: workers,
		limiter: limiter,
		log:     log.With().Str("component", "price_fetcher").Logger(),
	}
}

// FetchHistory fetches bars for every symbol. The error is non-nil only when
// ctx is cancelled; failed symbols are reported in the errors map.
func (f *BatchFetcher) FetchHistory(ctx context.Context, symbols []string, period string) (map[string][]domain.DailyPrice, map[string]error, error) {
	results := make(map[string][]domain.DailyPrice, len(symbols))
	failures := make(map[string]error)

	err := f.run(ctx, symbols, func(ctx context.Context, symbol string) (interface{}, error) {
		return f.source.GetHistory(ctx, symbol, period)
	}, func(symbol string, v interface{}, err error) {
		if err != nil {
			failures[symbol] = err
			return
		}
		results[symbol] = v.([]domain.DailyPrice)
	})

	return results, failures, err
}

// FetchQuotes fetches the current price for every symbol
func (f *BatchFetcher) FetchQuotes(ctx context.Context, symbols []string) (map[string]float64, map[string]error, error) {
	results := make(map[string]float64, len(symbols))
	failures := make(map[string]error)

	err := f.run(ctx, symbols, func(ctx context.Context, symbol string) (interface{}, error) {
		return f.source.GetCurrentPrice(ctx, symbol)
	}, func(symbol string, v interface{}, err error) {
		if err != nil {
			failures[symbol] = err
			return
		}
		results[symbol] = v.(float64)
	})

	return results, failures, err
}

// run calls fetch per symbol on the pool; collect is serialized
func (f *BatchFetcher) run(
	ctx context.Context,
	symbols []string,
	fetch func(ctx context.Context, symbol string) (interface{}, error),
	collect func(symbol string, v interface{}, err error),
) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := f.limiter.Wait(gctx); err != nil {
				return err
			}

			v, err := fetch(gctx, symbol)
			if err != nil {
				f.log.Warn().Err(err).Str("symbol", symbol).Msg("Fetch failed")
			}

			mu.Lock()
			collect(symbol, v, err)
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}
