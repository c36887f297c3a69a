// Package ledger reconstructs FIFO share lots, positions and realized trades
// from a chronological transaction log.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidTransaction is returned for a transaction that cannot be booked
var ErrInvalidTransaction = errors.New("invalid transaction")

// Kind identifies what a transaction does
type Kind string

const (
	KindBuy      Kind = "BUY"
	KindSell     Kind = "SELL"
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
	KindDividend Kind = "DIVIDEND"
	KindFee      Kind = "FEE"
	KindInterest Kind = "INTEREST"
)

// CashSymbol names the synthetic cash position
const CashSymbol = "CASH"

var kindAliases = map[string]Kind{
	"BUY":             KindBuy,
	"B":               KindBuy,
	"SELL":            KindSell,
	"S":               KindSell,
	"DEPOSIT":         KindDeposit,
	"WITHDRAW":        KindWithdraw,
	"WITHDRAWAL":      KindWithdraw,
	"DIVIDEND":        KindDividend,
	"DIV":             KindDividend,
	"FEE":             KindFee,
	"FEES":            KindFee,
	"TAXES":           KindFee,
	"INTEREST":        KindInterest,
	"INTEREST_INCOME": KindInterest,
}

// ParseKind maps a case-insensitive kind name or common alias to a Kind
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, s)
}

// IsTrade reports whether the kind moves shares
func (k Kind) IsTrade() bool {
	return k == KindBuy || k == KindSell
}

// Transaction is a single immutable ledger entry
type Transaction struct {
	ID       string          `json:"id,omitempty"`
	Symbol   string          `json:"symbol"`
	Kind     Kind            `json:"kind"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Fees     decimal.Decimal `json:"fees"`
	Date     time.Time       `json:"date"`
}

// Validate checks the field constraints for the transaction's kind
func (t Transaction) Validate() error {
	switch t.Kind {
	case KindBuy, KindSell, KindDeposit, KindWithdraw, KindDividend, KindFee, KindInterest:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, t.Kind)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidTransaction, t.Quantity)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidTransaction, t.Price)
	}
	if t.Fees.IsNegative() {
		return fmt.Errorf("%w: fees must not be negative, got %s", ErrInvalidTransaction, t.Fees)
	}
	if t.Kind.IsTrade() && strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("%w: %s requires a symbol", ErrInvalidTransaction, t.Kind)
	}
	return nil
}

// GrossAmount is quantity * price
func (t Transaction) GrossAmount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// CashAmount is the signed effect of the transaction on the investor's cash.
//
//	BUY      -(quantity*price) - fees
//	SELL     quantity*price - fees
//	DEPOSIT, DIVIDEND, INTEREST  +amount - fees
//	WITHDRAW, FEE                -amount - fees
//
// For cash kinds the amount is quantity*price, or quantity alone when the price is zero.
func (t Transaction) CashAmount() decimal.Decimal {
	switch t.Kind {
	case KindBuy:
		return t.GrossAmount().Neg().Sub(t.Fees)
	case KindSell:
		return t.GrossAmount().Sub(t.Fees)
	}

	amount := t.Quantity
	if t.Price.IsPositive() {
		amount = t.GrossAmount()
	}

	switch t.Kind {
	case KindWithdraw, KindFee:
		return amount.Neg().Sub(t.Fees)
	default:
		return amount.Sub(t.Fees)
	}
}
