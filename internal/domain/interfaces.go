package domain

import "context"

// PriceProvider supplies market data to the analytics modules.
// Symbols without data are omitted from results rather than failing the call.
type PriceProvider interface {
	// GetPriceSeries returns adjusted daily closes for the lookback period ("1y", "6mo", ...)
	GetPriceSeries(ctx context.Context, symbols []string, period string) (*PriceTable, error)

	// GetCurrentPrices returns the latest price per symbol
	GetCurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}
