package testing

import (
	"math"
	"time"
)

// PriceWalk builds a deterministic price path of n closes starting at start.
// Each step applies drift plus a sine wobble of the given amplitude, which gives
// series with both up and down days without a random source.
func PriceWalk(start float64, n int, drift, amplitude float64, phase float64) []float64 {
	prices := make([]float64, n)
	price := start
	for i := 0; i < n; i++ {
		prices[i] = price
		price *= 1 + drift + amplitude*math.Sin(float64(i)*0.7+phase)
	}
	return prices
}

// TradingDates returns n consecutive weekdays beginning at from
func TradingDates(from time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	d := from
	for len(dates) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			dates = append(dates, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return dates
}
