package testing

import (
	"context"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
)

// StaticPriceProvider serves fixed closes, implementing domain.PriceProvider.
// Current prices are the last close of each series unless overridden.
type StaticPriceProvider struct {
	Series  map[string][]domain.PricePoint
	Current map[string]float64
	Err     error
}

// NewStaticPriceProvider builds a provider whose series are the given price
// paths on consecutive trading days starting at from.
func NewStaticPriceProvider(from time.Time, paths map[string][]float64) *StaticPriceProvider {
	series := make(map[string][]domain.PricePoint, len(paths))
	for symbol, prices := range paths {
		dates := TradingDates(from, len(prices))
		points := make([]domain.PricePoint, len(prices))
		for i, p := range prices {
			points[i] = domain.PricePoint{Date: dates[i], Close: p}
		}
		series[symbol] = points
	}
	return &StaticPriceProvider{Series: series, Current: map[string]float64{}}
}

// GetPriceSeries implements domain.PriceProvider; the period is ignored
func (p *StaticPriceProvider) GetPriceSeries(_ context.Context, symbols []string, _ string) (*domain.PriceTable, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	selected := make(map[string][]domain.PricePoint, len(symbols))
	for _, s := range symbols {
		if points, ok := p.Series[s]; ok {
			selected[s] = points
		}
	}
	return domain.NewPriceTable(selected), nil
}

// GetCurrentPrices implements domain.PriceProvider
func (p *StaticPriceProvider) GetCurrentPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if v, ok := p.Current[s]; ok {
			out[s] = v
			continue
		}
		if points := p.Series[s]; len(points) > 0 {
			out[s] = points[len(points)-1].Close
		}
	}
	return out, nil
}
