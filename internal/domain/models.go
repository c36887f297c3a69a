// Package domain provides the shared market-data types used across modules.
package domain

import (
	"math"
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// PricePoint is one adjusted close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// DailyPrice is one daily bar as delivered by a market-data source.
// AdjClose is zero when the source did not provide one.
type DailyPrice struct {
	Date     time.Time `json:"date"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close,omitempty"`
}

// Adjusted returns the split/dividend adjusted close, falling back to Close.
func (p DailyPrice) Adjusted() float64 {
	if p.AdjClose > 0 {
		return p.AdjClose
	}
	return p.Close
}

// PricePoints converts bars into adjusted closes.
func PricePoints(bars []DailyPrice) []PricePoint {
	points := make([]PricePoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, PricePoint{Date: b.Date, Close: b.Adjusted()})
	}
	return points
}

// PriceTable is a date × symbol grid of adjusted closes.
// Dates are the sorted union of every symbol's dates; a symbol without a
// close on a date holds NaN there.
type PriceTable struct {
	dates  []time.Time
	closes map[string][]float64
}

// NewPriceTable aligns per-symbol series on a shared date axis.
// Dates are truncated to the UTC day. Symbols with no usable points are omitted.
func NewPriceTable(series map[string][]PricePoint) *PriceTable {
	seen := make(map[int64]time.Time)
	for _, points := range series {
		for _, p := range points {
			if !usable(p.Close) {
				continue
			}
			d := dayOf(p.Date)
			seen[d.Unix()] = d
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[int64]int, len(dates))
	for i, d := range dates {
		index[d.Unix()] = i
	}

	closes := make(map[string][]float64, len(series))
	for symbol, points := range series {
		row := make([]float64, len(dates))
		for i := range row {
			row[i] = math.NaN()
		}
		found := false
		for _, p := range points {
			if !usable(p.Close) {
				continue
			}
			row[index[dayOf(p.Date).Unix()]] = p.Close
			found = true
		}
		if found {
			closes[symbol] = row
		}
	}

	return &PriceTable{dates: dates, closes: closes}
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dates returns the table's date axis
func (t *PriceTable) Dates() []time.Time {
	out := make([]time.Time, len(t.dates))
	copy(out, t.dates)
	return out
}

// Symbols returns the symbols with data, sorted
func (t *PriceTable) Symbols() []string {
	out := make([]string, 0, len(t.closes))
	for s := range t.closes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the table holds any closes for symbol
func (t *PriceTable) Has(symbol string) bool {
	_, ok := t.closes[symbol]
	return ok
}

// Len is the number of dates
func (t *PriceTable) Len() int {
	return len(t.dates)
}

// Series returns the non-missing closes for symbol in date order
func (t *PriceTable) Series(symbol string) []PricePoint {
	row, ok := t.closes[symbol]
	if !ok {
		return nil
	}
	out := make([]PricePoint, 0, len(row))
	for i, v := range row {
		if !math.IsNaN(v) {
			out = append(out, PricePoint{Date: t.dates[i], Close: v})
		}
	}
	return out
}

// PriceAt returns the last close on or before date
func (t *PriceTable) PriceAt(symbol string, date time.Time) (float64, bool) {
	row, ok := t.closes[symbol]
	if !ok {
		return 0, false
	}
	day := dayOf(date)
	i := sort.Search(len(t.dates), func(i int) bool { return t.dates[i].After(day) }) - 1
	for ; i >= 0; i-- {
		if !math.IsNaN(row[i]) {
			return row[i], true
		}
	}
	return 0, false
}

// Latest returns the most recent close for symbol
func (t *PriceTable) Latest(symbol string) (float64, bool) {
	row, ok := t.closes[symbol]
	if !ok {
		return 0, false
	}
	for i := len(row) - 1; i >= 0; i-- {
		if !math.IsNaN(row[i]) {
			return row[i], true
		}
	}
	return 0, false
}

// Returns gives the simple daily returns of one symbol over its own dates
func (t *PriceTable) Returns(symbol string) []float64 {
	points := t.Series(symbol)
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return formulas.CalculateReturns(closes)
}

// ReturnMatrix builds aligned simple returns for symbols, one row per date.
// Only dates on which every requested symbol has a close are used, so the
// rows are directly comparable across columns. The returned dates label the
// end of each return period. Unknown symbols yield an empty matrix.
func (t *PriceTable) ReturnMatrix(symbols []string) ([]time.Time, [][]float64) {
	rows := make([][]float64, len(symbols))
	for j, s := range symbols {
		row, ok := t.closes[s]
		if !ok {
			return nil, nil
		}
		rows[j] = row
	}

	var common []int
	for i := range t.dates {
		complete := true
		for _, row := range rows {
			if math.IsNaN(row[i]) {
				complete = false
				break
			}
		}
		if complete {
			common = append(common, i)
		}
	}
	if len(common) < 2 {
		return nil, nil
	}

	dates := make([]time.Time, 0, len(common)-1)
	matrix := make([][]float64, 0, len(common)-1)
	for k := 1; k < len(common); k++ {
		prev, cur := common[k-1], common[k]
		r := make([]float64, len(symbols))
		for j, row := range rows {
			r[j] = row[cur]/row[prev] - 1
		}
		dates = append(dates, t.dates[cur])
		matrix = append(matrix, r)
	}
	return dates, matrix
}
