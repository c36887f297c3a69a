package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SymbolSource lists the symbols that need prices
type SymbolSource interface {
	Symbols() ([]string, error)
}

// RefreshJob re-fetches history and quotes for every traded symbol plus the
// benchmark so report requests hit warm caches.
type RefreshJob struct {
	provider  *Provider
	symbols   SymbolSource
	benchmark string
	period    string
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshJob creates a new price refresh job
func NewRefreshJob(provider *Provider, symbols SymbolSource, benchmark, period string, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		provider:  provider,
		symbols:   symbols,
		benchmark: benchmark,
		period:    period,
		timeout:   10 * time.Minute,
		log:       log.With().Str("job", "price_refresh").Logger(),
	}
}

// Run executes the refresh
func (j *RefreshJob) Run() error {
	symbols, err := j.symbols.Symbols()
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}
	if j.benchmark != "" {
		symbols = append(symbols, j.benchmark)
	}
	if len(symbols) == 0 {
		j.log.Debug().Msg("No symbols to refresh")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	refreshed, err := j.provider.Refresh(ctx, symbols, j.period)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("symbols", len(symbols)).
		Int("refreshed", refreshed).
		Dur("took", time.Since(start)).
		Msg("Price refresh completed")

	return nil
}

// Name returns the job name for scheduling and logging
func (j *RefreshJob) Name() string {
	return "price_refresh"
}
