// Package returns computes money-weighted and time-weighted portfolio returns
// together with trade-level statistics derived from the ledger.
package returns

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
)

// CashFlow is a dated investor cash movement. Outflows (money invested) are negative.
type CashFlow struct {
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// CashFlowsFromTransactions derives the investor cash flows of the trades in
// txs, sorted by date. Cash-only kinds move money inside the account and are
// not external flows for return purposes.
func CashFlowsFromTransactions(txs []ledger.Transaction) []CashFlow {
	flows := make([]CashFlow, 0, len(txs))
	for _, tx := range txs {
		if !tx.Kind.IsTrade() {
			continue
		}
		flows = append(flows, CashFlow{
			Amount: tx.CashAmount().InexactFloat64(),
			Date:   tx.Date,
		})
	}
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Date.Before(flows[j].Date)
	})
	return flows
}

// TotalInvested is the magnitude of all outflows
func TotalInvested(flows []CashFlow) float64 {
	total := 0.0
	for _, f := range flows {
		if f.Amount < 0 {
			total -= f.Amount
		}
	}
	return total
}

// TotalWithdrawn is the sum of all inflows
func TotalWithdrawn(flows []CashFlow) float64 {
	total := 0.0
	for _, f := range flows {
		if f.Amount > 0 {
			total += f.Amount
		}
	}
	return total
}

// yearsBetween measures elapsed time in 365.25-day years
func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365.25
}
