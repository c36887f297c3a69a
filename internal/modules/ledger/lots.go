package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one open purchase of a security
type Lot struct {
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Fees     decimal.Decimal `json:"fees"` // purchase fees not yet released by sales
	Date     time.Time       `json:"date"`
}

// Cost is the lot's remaining cost basis including its unreleased fees
func (l Lot) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost).Add(l.Fees)
}

// Position is the FIFO queue of open lots for one symbol, oldest first
type Position struct {
	Symbol string `json:"symbol"`
	Lots   []Lot  `json:"lots"`
}

// Quantity is the sum of the lot quantities
func (p Position) Quantity() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lots {
		total = total.Add(l.Quantity)
	}
	return total
}

// Cost is the total remaining cost basis, fees included
func (p Position) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lots {
		total = total.Add(l.Cost())
	}
	return total
}

// AverageCost is Cost / Quantity, or zero for an empty position
func (p Position) AverageCost() decimal.Decimal {
	qty := p.Quantity()
	if qty.IsZero() {
		return decimal.Zero
	}
	return p.Cost().Div(qty)
}

func (p Position) clone() Position {
	lots := make([]Lot, len(p.Lots))
	copy(lots, p.Lots)
	return Position{Symbol: p.Symbol, Lots: lots}
}

// RealizedTrade records the closing of (part of) one lot by a sale
type RealizedTrade struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	BuyDate     time.Time       `json:"buy_date"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	SellDate    time.Time       `json:"sell_date"`
	SellPrice   decimal.Decimal `json:"sell_price"`
	CostBasis   decimal.Decimal `json:"cost_basis"` // quantity*buy price + allocated purchase fees
	Proceeds    decimal.Decimal `json:"proceeds"`   // quantity*sell price - allocated sale fees
	PnL         decimal.Decimal `json:"realized_pnl"`
	HoldingDays int             `json:"holding_period_days"`
}

// Oversell records the part of a sale that found no open lot to consume
type Oversell struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Requested decimal.Decimal `json:"requested"`
	Unmatched decimal.Decimal `json:"unmatched"`
}
