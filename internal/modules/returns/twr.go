package returns

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
)

// PriceFunc looks up the price of symbol on date
type PriceFunc func(symbol string, date time.Time) (float64, bool)

// ValuationPoint is the market value of the holdings at the end of a day,
// with NetFlow the money invested into the holdings (buys minus sale
// proceeds) since the previous point.
type ValuationPoint struct {
	Date    time.Time `json:"date"`
	Value   float64   `json:"value"`
	NetFlow float64   `json:"net_flow"`
}

// TWR chain-links the sub-period returns between consecutive points:
//
//	r_i = (V_i - V_{i-1} - F_i) / V_{i-1}    (0 when V_{i-1} <= 0)
//	TWR = Π(1 + r_i) - 1
//
// Fewer than two points give 0.
func TWR(points []ValuationPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	growth := 1.0
	for i := 1; i < len(points); i++ {
		growth *= 1 + periodReturn(points[i-1], points[i])
	}
	return growth - 1
}

func periodReturn(start, end ValuationPoint) float64 {
	if start.Value <= 0 {
		return 0
	}
	return (end.Value - start.Value - end.NetFlow) / start.Value
}

// ValuationPoints values the holdings at each distinct trade day, after that
// day's trades. Symbols without a price contribute nothing.
func ValuationPoints(txs []ledger.Transaction, price PriceFunc) []ValuationPoint {
	trades := sortedTrades(txs)
	var days []time.Time
	for _, tx := range trades {
		d := dayOf(tx.Date)
		if len(days) == 0 || !days[len(days)-1].Equal(d) {
			days = append(days, d)
		}
	}
	return valueOn(trades, days, price)
}

// DailyValues values the holdings on each of dates that falls on or after the
// first trade day. Trades are attributed to the first listed date on or after
// the trade.
func DailyValues(txs []ledger.Transaction, dates []time.Time, price PriceFunc) []ValuationPoint {
	trades := sortedTrades(txs)
	if len(trades) == 0 {
		return nil
	}
	first := dayOf(trades[0].Date)

	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = dayOf(d)
		if !d.Before(first) {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return valueOn(trades, days, price)
}

func valueOn(trades []ledger.Transaction, days []time.Time, price PriceFunc) []ValuationPoint {
	holdings := make(map[string]float64)
	points := make([]ValuationPoint, 0, len(days))
	next := 0

	for _, day := range days {
		flow := 0.0
		for next < len(trades) && !dayOf(trades[next].Date).After(day) {
			tx := trades[next]
			qty := tx.Quantity.InexactFloat64()
			if tx.Kind == ledger.KindBuy {
				holdings[tx.Symbol] += qty
			} else {
				holdings[tx.Symbol] -= qty
				if holdings[tx.Symbol] < 0 {
					holdings[tx.Symbol] = 0
				}
			}
			flow -= tx.CashAmount().InexactFloat64()
			next++
		}

		value := 0.0
		for symbol, qty := range holdings {
			if qty <= 0 {
				continue
			}
			if p, ok := price(symbol, day); ok {
				value += qty * p
			}
		}
		points = append(points, ValuationPoint{Date: day, Value: value, NetFlow: flow})
	}
	return points
}

func sortedTrades(txs []ledger.Transaction) []ledger.Transaction {
	trades := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Kind.IsTrade() {
			trades = append(trades, tx)
		}
	}
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Date.Before(trades[j].Date)
	})
	return trades
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
