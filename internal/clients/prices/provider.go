package prices

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/clients/yahoo"
	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/historical"
	"github.com/rs/zerolog"
)

// staleAfter covers a weekend plus a market holiday
const staleAfter = 4 * 24 * time.Hour

// HistoryStore persists daily bars
type HistoryStore interface {
	Upsert(symbol string, prices []domain.DailyPrice) error
	GetRange(symbol string, from time.Time) ([]domain.DailyPrice, error)
	Latest(symbol string) (*domain.DailyPrice, error)
	Coverage(symbol string) (historical.Coverage, bool, error)
}

// QuoteCache holds expiring current prices
type QuoteCache interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string, out interface{}) (bool, error)
	Get(table, key string, out interface{}) (bool, error)
}

// Provider implements domain.PriceProvider on top of the history store and
// quote cache, fetching from the remote source only what is missing or stale.
// Symbols that cannot be priced are omitted from results and logged.
type Provider struct {
	fetcher *BatchFetcher
	store   HistoryStore
	cache   QuoteCache
	now     func() time.Time
	log     zerolog.Logger

	// earliest window start already fetched per symbol; history that begins
	// after it is the listing date, not a gap
	mu      sync.Mutex
	fetched map[string]time.Time
}

// NewProvider creates a new cached price provider
func NewProvider(fetcher *BatchFetcher, store HistoryStore, cache QuoteCache, log zerolog.Logger) *Provider {
	return &Provider{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		now:     time.Now,
		log:     log.With().Str("component", "price_provider").Logger(),
		fetched: make(map[string]time.Time),
	}
}

// PeriodStart resolves a lookback period ("5d", "1mo", "3mo", "6mo", "ytd",
// "1y", "2y", "5y", "10y", "max") to its first date
func PeriodStart(period string, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "5d":
		return now.AddDate(0, 0, -5), nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
	case "1y", "":
		return now.AddDate(-1, 0, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "10y":
		return now.AddDate(-10, 0, 0), nil
	case "max":
		return time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported period %q", period)
	}
}

// GetPriceSeries implements domain.PriceProvider
func (p *Provider) GetPriceSeries(ctx context.Context, symbols []string, period string) (*domain.PriceTable, error) {
	now := p.now()
	from, err := PeriodStart(period, now)
	if err != nil {
		return nil, err
	}

	valid := p.filter(symbols)

	var stale []string
	for _, symbol := range valid {
		if p.needsFetch(symbol, from, now) {
			stale = append(stale, symbol)
		}
	}
	if len(stale) > 0 {
		if _, err := p.refreshHistory(ctx, stale, period); err != nil {
			return nil, err
		}
	}

	series := make(map[string][]domain.PricePoint, len(valid))
	var missing []string
	for _, symbol := range valid {
		bars, err := p.store.GetRange(symbol, from)
		if err != nil {
			return nil, fmt.Errorf("failed to read prices for %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			missing = append(missing, symbol)
			continue
		}
		series[symbol] = domain.PricePoints(bars)
	}

	if len(missing) > 0 {
		p.log.Warn().Strs("missing", missing).Msg("No price history for symbols")
	}

	table := domain.NewPriceTable(series)
	if len(table.Symbols()) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, strings.Join(symbols, ","))
	}

	return table, nil
}

// GetCurrentPrices implements domain.PriceProvider.
// Fresh cache entries win; misses are fetched; fetch failures fall back to
// stale cache entries and then to the last stored close.
func (p *Provider) GetCurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	valid := p.filter(symbols)
	prices := make(map[string]float64, len(valid))

	var misses []string
	for _, symbol := range valid {
		var price float64
		found, err := p.cache.GetIfFresh(clientdata.TableCurrentPrices, symbol, &price)
		if err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read quote cache")
		}
		if found && price > 0 {
			prices[symbol] = price
			continue
		}
		misses = append(misses, symbol)
	}

	if len(misses) == 0 {
		return prices, nil
	}

	quotes, failures, err := p.fetcher.FetchQuotes(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	var missing []string
	for _, symbol := range misses {
		if price, ok := quotes[symbol]; ok && price > 0 {
			prices[symbol] = price
			if err := p.cache.Store(clientdata.TableCurrentPrices, symbol, price, clientdata.TTLCurrentPrice); err != nil {
				p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
			}
			continue
		}

		if price, ok := p.fallbackPrice(symbol); ok {
			p.log.Debug().Err(failures[symbol]).Str("symbol", symbol).Msg("Using fallback price")
			prices[symbol] = price
			continue
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		p.log.Warn().Strs("missing", missing).Msg("No current price for symbols")
	}

	return prices, nil
}

// Refresh force-fetches history and quotes for symbols, returning how many
// symbols got fresh history
func (p *Provider) Refresh(ctx context.Context, symbols []string, period string) (int, error) {
	valid := p.filter(symbols)
	if len(valid) == 0 {
		return 0, nil
	}

	n, err := p.refreshHistory(ctx, valid, period)
	if err != nil {
		return n, err
	}

	quotes, _, err := p.fetcher.FetchQuotes(ctx, valid)
	if err != nil {
		return n, fmt.Errorf("failed to fetch quotes: %w", err)
	}
	for symbol, price := range quotes {
		if err := p.cache.Store(clientdata.TableCurrentPrices, symbol, price, clientdata.TTLCurrentPrice); err != nil {
			p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache quote")
		}
	}

	return n, nil
}

func (p *Provider) refreshHistory(ctx context.Context, symbols []string, period string) (int, error) {
	bars, failures, err := p.fetcher.FetchHistory(ctx, symbols, period)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch price history: %w", err)
	}

	from, periodErr := PeriodStart(period, p.now())

	stored := 0
	for symbol, prices := range bars {
		if err := p.store.Upsert(symbol, prices); err != nil {
			return stored, fmt.Errorf("failed to store prices for %s: %w", symbol, err)
		}
		stored++
		if periodErr == nil {
			p.markFetched(symbol, from)
		}
	}

	if len(failures) > 0 {
		failed := make([]string, 0, len(failures))
		for symbol := range failures {
			failed = append(failed, symbol)
		}
		sort.Strings(failed)
		p.log.Warn().Strs("failed", failed).Msg("Price history fetch failed, using stored data")
	}

	return stored, nil
}

// needsFetch is true when nothing is stored, the newest bar is stale or the
// stored history starts well after a window that was never fetched
func (p *Provider) needsFetch(symbol string, from, now time.Time) bool {
	cov, ok, err := p.store.Coverage(symbol)
	if err != nil {
		p.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to check stored coverage")
		return true
	}
	if !ok {
		return true
	}
	if now.Sub(cov.Last) > staleAfter {
		return true
	}
	if !cov.First.After(from.AddDate(0, 0, 7)) {
		return false
	}
	return !p.fetchedSince(symbol, from)
}

func (p *Provider) markFetched(symbol string, from time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.fetched[symbol]; !ok || from.Before(prev) {
		p.fetched[symbol] = from
	}
}

func (p *Provider) fetchedSince(symbol string, from time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev, ok := p.fetched[symbol]
	return ok && !prev.After(from)
}

func (p *Provider) fallbackPrice(symbol string) (float64, bool) {
	var price float64
	if found, err := p.cache.Get(clientdata.TableCurrentPrices, symbol, &price); err == nil && found && price > 0 {
		return price, true
	}

	latest, err := p.store.Latest(symbol)
	if err != nil || latest == nil {
		return 0, false
	}
	return latest.Close, true
}

// filter normalizes, dedupes and drops unpriceable symbols
func (p *Provider) filter(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	normalized := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		normalized = append(normalized, s)
	}

	valid, skipped := yahoo.FilterSymbols(normalized)
	if len(skipped) > 0 {
		p.log.Debug().Strs("skipped", skipped).Msg("Skipping unpriceable symbols")
	}
	return valid
}
