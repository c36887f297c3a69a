package report

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
)

// markToMarket prices a symbol on a date from, in order: the history table
// close on or before the date, the last trade price on or before the date,
// and finally the current quote. The trade fallback keeps holdings bought
// before the history window from valuing at zero.
func markToMarket(table *domain.PriceTable, txs []ledger.Transaction, current map[string]float64) returns.PriceFunc {
	type mark struct {
		date  time.Time
		price float64
	}

	trades := make(map[string][]mark)
	for _, tx := range txs {
		if !tx.Kind.IsTrade() || !tx.Price.IsPositive() {
			continue
		}
		trades[tx.Symbol] = append(trades[tx.Symbol], mark{date: tx.Date, price: tx.Price.InexactFloat64()})
	}
	for _, marks := range trades {
		sort.SliceStable(marks, func(i, j int) bool { return marks[i].date.Before(marks[j].date) })
	}

	return func(symbol string, date time.Time) (float64, bool) {
		if table != nil {
			if p, ok := table.PriceAt(symbol, date); ok {
				return p, true
			}
		}

		marks := trades[symbol]
		endOfDay := date.Add(24 * time.Hour)
		i := sort.Search(len(marks), func(i int) bool { return !marks[i].date.Before(endOfDay) }) - 1
		if i >= 0 {
			return marks[i].price, true
		}

		p, ok := current[symbol]
		return p, ok && p > 0
	}
}
