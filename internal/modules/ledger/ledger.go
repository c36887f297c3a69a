package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ledger books transactions into FIFO lots.
// A Ledger is not safe for concurrent use; give each computation its own.
type Ledger struct {
	positions    map[string]*Position
	realized     []RealizedTrade
	oversells    []Oversell
	transactions []Transaction
	cash         decimal.Decimal
	log          zerolog.Logger
}

// New creates an empty ledger
func New(log zerolog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*Position),
		log:       log.With().Str("component", "ledger").Logger(),
	}
}

// Apply replaces the ledger state with the result of booking transactions
// in date order (ties keep input order) and returns the open positions
// sorted by symbol. Calling Apply twice with the same input gives the same
// result. Invalid transactions abort the whole call and leave the ledger empty.
func (l *Ledger) Apply(transactions []Transaction) ([]Position, error) {
	l.reset()

	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for i, tx := range sorted {
		if err := tx.Validate(); err != nil {
			l.reset()
			return nil, fmt.Errorf("failed to apply transaction %d (%s %s): %w", i, tx.Kind, tx.Symbol, err)
		}

		switch tx.Kind {
		case KindBuy:
			l.buy(tx)
		case KindSell:
			l.sell(tx)
		default:
			l.cash = l.cash.Add(tx.CashAmount())
		}
	}

	l.transactions = sorted

	l.log.Debug().
		Int("transactions", len(sorted)).
		Int("positions", len(l.positions)).
		Int("realized_trades", len(l.realized)).
		Msg("Ledger applied")

	return l.Positions(), nil
}

func (l *Ledger) reset() {
	l.positions = make(map[string]*Position)
	l.realized = nil
	l.oversells = nil
	l.transactions = nil
	l.cash = decimal.Zero
}

func (l *Ledger) buy(tx Transaction) {
	pos, ok := l.positions[tx.Symbol]
	if !ok {
		pos = &Position{Symbol: tx.Symbol}
		l.positions[tx.Symbol] = pos
	}

	pos.Lots = append(pos.Lots, Lot{
		Quantity: tx.Quantity,
		UnitCost: tx.Price,
		Fees:     tx.Fees,
		Date:     tx.Date,
	})
}

// sell consumes the oldest lots first. Each consumed slice carries its share
// of the lot's purchase fee (by fraction of the lot sold) and its share of the
// sale fee (by fraction of the sale quantity).
func (l *Ledger) sell(tx Transaction) {
	remaining := tx.Quantity
	pos := l.positions[tx.Symbol]

	for pos != nil && len(pos.Lots) > 0 && remaining.IsPositive() {
		lot := &pos.Lots[0]

		slice := decimal.Min(lot.Quantity, remaining)
		lotFees := lot.Fees
		if slice.LessThan(lot.Quantity) {
			lotFees = lot.Fees.Mul(slice).Div(lot.Quantity)
		}
		sellFees := tx.Fees.Mul(slice).Div(tx.Quantity)

		costBasis := slice.Mul(lot.UnitCost).Add(lotFees)
		proceeds := slice.Mul(tx.Price).Sub(sellFees)

		l.realized = append(l.realized, RealizedTrade{
			Symbol:      tx.Symbol,
			Quantity:    slice,
			BuyDate:     lot.Date,
			BuyPrice:    lot.UnitCost,
			SellDate:    tx.Date,
			SellPrice:   tx.Price,
			CostBasis:   costBasis,
			Proceeds:    proceeds,
			PnL:         proceeds.Sub(costBasis),
			HoldingDays: holdingDays(lot.Date, tx.Date),
		})

		if slice.Equal(lot.Quantity) {
			pos.Lots = pos.Lots[1:]
		} else {
			lot.Quantity = lot.Quantity.Sub(slice)
			lot.Fees = lot.Fees.Sub(lotFees)
		}
		remaining = remaining.Sub(slice)
	}

	if pos != nil && len(pos.Lots) == 0 {
		delete(l.positions, tx.Symbol)
	}

	if remaining.IsPositive() {
		l.oversells = append(l.oversells, Oversell{
			Symbol:    tx.Symbol,
			Date:      tx.Date,
			Requested: tx.Quantity,
			Unmatched: remaining,
		})
		l.log.Warn().
			Str("symbol", tx.Symbol).
			Str("requested", tx.Quantity.String()).
			Str("excess", remaining.String()).
			Time("date", tx.Date).
			Msg("Sell exceeds open lots, excess ignored")
	}
}

func holdingDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Positions returns copies of the open positions sorted by symbol
func (l *Ledger) Positions() []Position {
	symbols := make([]string, 0, len(l.positions))
	for s := range l.positions {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]Position, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, l.positions[s].clone())
	}
	return out
}

// Position returns a copy of one open position
func (l *Ledger) Position(symbol string) (Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return p.clone(), true
}

// RealizedTrades returns the realized trades in booking order
func (l *Ledger) RealizedTrades() []RealizedTrade {
	out := make([]RealizedTrade, len(l.realized))
	copy(out, l.realized)
	return out
}

// Oversells returns the sales that exceeded the open lots
func (l *Ledger) Oversells() []Oversell {
	out := make([]Oversell, len(l.oversells))
	copy(out, l.oversells)
	return out
}

// Transactions returns the booked transactions in date order
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// CurrentPositions maps symbol to open quantity
func (l *Ledger) CurrentPositions() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.positions))
	for s, p := range l.positions {
		out[s] = p.Quantity()
	}
	return out
}

// CostBasis maps symbol to weighted-average unit cost (remaining cost / remaining quantity)
func (l *Ledger) CostBasis() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.positions))
	for s, p := range l.positions {
		out[s] = p.AverageCost()
	}
	return out
}

// CashBalance is the running total of the cash-only transactions
func (l *Ledger) CashBalance() decimal.Decimal {
	return l.cash
}

// CashPosition represents a positive cash balance as a CASH position at unit
// price 1. It returns false when there is no positive balance.
func (l *Ledger) CashPosition() (Position, bool) {
	if !l.cash.IsPositive() {
		return Position{}, false
	}
	return Position{
		Symbol: CashSymbol,
		Lots:   []Lot{{Quantity: l.cash, UnitCost: decimal.NewFromInt(1), Fees: decimal.Zero}},
	}, true
}

// RealizedPnL sums the realized trades
func (l *Ledger) RealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, rt := range l.realized {
		total = total.Add(rt.PnL)
	}
	return total
}
