// Package yahoo fetches daily bars and quotes from Yahoo Finance.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// ErrInvalidSymbol is returned for identifiers Yahoo cannot price
var ErrInvalidSymbol = errors.New("symbol not priceable on yahoo")

// OCC option contract: root, YYMMDD expiry, C/P, strike × 1000 in 8 digits
var optionPattern = regexp.MustCompile(`^[A-Z]{1,6}\d{6}[CP]\d{8}$`)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]*$`)

// IsValidSymbol reports whether the symbol can be looked up.
// Cash placeholders and option contracts are rejected.
func IsValidSymbol(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || s == "CASH" || strings.HasPrefix(s, "CASH.") {
		return false
	}
	if optionPattern.MatchString(s) {
		return false
	}
	return symbolPattern.MatchString(s)
}

// FilterSymbols splits symbols into priceable and skipped, preserving order
func FilterSymbols(symbols []string) (valid, skipped []string) {
	for _, s := range symbols {
		if IsValidSymbol(s) {
			valid = append(valid, s)
		} else {
			skipped = append(skipped, s)
		}
	}
	return valid, skipped
}

// Client wraps go-yfinance
type Client struct {
	log zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetHistory fetches adjusted daily bars for one symbol over period ("1y", "6mo", ...)
func (c *Client) GetHistory(ctx context.Context, symbol, period string) ([]domain.DailyPrice, error) {
	if !IsValidSymbol(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	bars, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices for %s: %w", symbol, err)
	}

	prices := make([]domain.DailyPrice, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		prices = append(prices, domain.DailyPrice{
			Date:     bar.Date,
			Close:    bar.Close,
			AdjClose: bar.AdjClose,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("count", len(prices)).
		Msg("Fetched historical prices")

	return prices, nil
}

// GetCurrentPrice returns the regular market price, falling back to the
// pre/post market price when the regular session has none
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if !IsValidSymbol(symbol) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	quote, err := t.Quote()
	if err != nil {
		return 0, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if quote == nil {
		return 0, fmt.Errorf("empty quote for %s", symbol)
	}

	for _, price := range []float64{quote.RegularMarketPrice, quote.PreMarketPrice, quote.PostMarketPrice} {
		if price > 0 {
			return price, nil
		}
	}

	return 0, fmt.Errorf("no valid price in quote for %s", symbol)
}

// GetBatchQuotes returns the last daily close for many symbols in one request.
// Symbols that fail are logged and omitted.
func (c *Client) GetBatchQuotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	valid, skipped := FilterSymbols(symbols)
	if len(skipped) > 0 {
		c.log.Debug().Strs("skipped", skipped).Msg("Skipping unpriceable symbols")
	}
	quotes := make(map[string]float64, len(valid))
	if len(valid) == 0 {
		return quotes, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := models.DefaultDownloadParams()
	params.Symbols = valid
	params.Period = "5d"
	params.Interval = "1d"

	result, err := multi.Download(valid, &params)
	if err != nil {
		return nil, fmt.Errorf("failed to download batch quotes: %w", err)
	}

	for _, symbol := range valid {
		if bars, ok := result.Data[symbol]; ok && len(bars) > 0 {
			if last := bars[len(bars)-1].Close; last > 0 {
				quotes[symbol] = last
			}
		} else if err, ok := result.Errors[symbol]; ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get quote for symbol")
		}
	}

	return quotes, nil
}
