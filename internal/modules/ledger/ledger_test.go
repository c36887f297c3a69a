package ledger

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func trade(kind Kind, symbol, qty, price, fees, date string) Transaction {
	return Transaction{
		Symbol:   symbol,
		Kind:     kind,
		Quantity: d(qty),
		Price:    d(price),
		Fees:     d(fees),
		Date:     day(date),
	}
}

func newTestLedger() *Ledger {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func aaplScenario() []Transaction {
	return []Transaction{
		trade(KindBuy, "AAPL", "100", "150", "10", "2023-01-01"),
		trade(KindBuy, "AAPL", "50", "180", "10", "2023-06-01"),
		trade(KindSell, "AAPL", "25", "200", "10", "2023-12-01"),
	}
}

func TestApply_PartialSaleOfFirstLot(t *testing.T) {
	l := newTestLedger()

	positions, err := l.Apply(aaplScenario())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, "AAPL", pos.Symbol)
	assert.True(t, pos.Quantity().Equal(d("125")))
	require.Len(t, pos.Lots, 2)
	assert.True(t, pos.Lots[0].Quantity.Equal(d("75")))
	assert.True(t, pos.Lots[0].UnitCost.Equal(d("150")))
	assert.True(t, pos.Lots[0].Fees.Equal(d("7.5")), "unsold share of the purchase fee stays with the lot")
	assert.True(t, pos.Lots[1].Quantity.Equal(d("50")))
	assert.True(t, pos.Lots[1].UnitCost.Equal(d("180")))

	trades := l.RealizedTrades()
	require.Len(t, trades, 1)
	rt := trades[0]
	assert.True(t, rt.Quantity.Equal(d("25")))
	assert.True(t, rt.BuyPrice.Equal(d("150")))
	assert.True(t, rt.SellPrice.Equal(d("200")))
	assert.True(t, rt.CostBasis.Equal(d("3752.5")))
	assert.True(t, rt.Proceeds.Equal(d("4990")))
	assert.True(t, rt.PnL.Equal(d("1237.5")), "got %s", rt.PnL)
	assert.Equal(t, 334, rt.HoldingDays)

	assert.Empty(t, l.Oversells())
}

func TestApply_SellSpanningLots(t *testing.T) {
	l := newTestLedger()

	_, err := l.Apply([]Transaction{
		trade(KindBuy, "MSFT", "10", "100", "2", "2023-01-01"),
		trade(KindBuy, "MSFT", "10", "120", "2", "2023-02-01"),
		trade(KindSell, "MSFT", "15", "130", "3", "2023-03-01"),
	})
	require.NoError(t, err)

	trades := l.RealizedTrades()
	require.Len(t, trades, 2)

	// first lot fully consumed: all of its fee, 10/15 of the sale fee
	assert.True(t, trades[0].Quantity.Equal(d("10")))
	assert.True(t, trades[0].PnL.Equal(d("296")), "got %s", trades[0].PnL)

	// second lot half consumed: half its fee, 5/15 of the sale fee
	assert.True(t, trades[1].Quantity.Equal(d("5")))
	assert.True(t, trades[1].PnL.Equal(d("48")), "got %s", trades[1].PnL)

	pos, ok := l.Position("MSFT")
	require.True(t, ok)
	assert.True(t, pos.Quantity().Equal(d("5")))
	assert.True(t, pos.Cost().Equal(d("601")))
}

func TestApply_FullExitRemovesPosition(t *testing.T) {
	l := newTestLedger()

	positions, err := l.Apply([]Transaction{
		trade(KindBuy, "TSLA", "5", "200", "0", "2023-01-01"),
		trade(KindSell, "TSLA", "5", "150", "0", "2023-01-10"),
	})
	require.NoError(t, err)

	assert.Empty(t, positions)
	_, ok := l.Position("TSLA")
	assert.False(t, ok)
	assert.True(t, l.RealizedPnL().Equal(d("-250")))
}

func TestApply_OversellClampsAndRecords(t *testing.T) {
	l := newTestLedger()

	positions, err := l.Apply([]Transaction{
		trade(KindBuy, "NVDA", "10", "50", "0", "2023-01-01"),
		trade(KindSell, "NVDA", "15", "60", "0", "2023-02-01"),
		trade(KindSell, "AMD", "3", "90", "0", "2023-02-02"),
	})
	require.NoError(t, err)
	assert.Empty(t, positions, "quantity never goes negative")

	trades := l.RealizedTrades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(d("10")))

	oversells := l.Oversells()
	require.Len(t, oversells, 2)
	assert.Equal(t, "NVDA", oversells[0].Symbol)
	assert.True(t, oversells[0].Unmatched.Equal(d("5")))
	assert.Equal(t, "AMD", oversells[1].Symbol)
	assert.True(t, oversells[1].Unmatched.Equal(d("3")))
}

func TestApply_SortsByDateKeepingInputOrderForTies(t *testing.T) {
	l := newTestLedger()

	_, err := l.Apply([]Transaction{
		trade(KindSell, "AAPL", "5", "200", "0", "2023-03-01"),
		trade(KindBuy, "AAPL", "10", "100", "0", "2023-01-01"),
		trade(KindBuy, "AAPL", "10", "110", "0", "2023-01-01"),
	})
	require.NoError(t, err)

	trades := l.RealizedTrades()
	require.Len(t, trades, 1)
	assert.True(t, trades[0].BuyPrice.Equal(d("100")), "tie keeps input order so the 100 lot is oldest")
	assert.Empty(t, l.Oversells())
}

func TestApply_CashKindsStayOutOfLots(t *testing.T) {
	l := newTestLedger()

	positions, err := l.Apply([]Transaction{
		{Kind: KindDeposit, Quantity: d("1000"), Date: day("2023-01-01")},
		{Kind: KindDividend, Symbol: "AAPL", Quantity: d("10"), Price: d("0.5"), Date: day("2023-02-01")},
		{Kind: KindFee, Quantity: d("3"), Date: day("2023-02-02")},
		{Kind: KindWithdraw, Quantity: d("100"), Date: day("2023-03-01")},
		{Kind: KindInterest, Quantity: d("1.25"), Date: day("2023-03-02")},
		trade(KindBuy, "AAPL", "1", "100", "0", "2023-01-02"),
	})
	require.NoError(t, err)
	require.Len(t, positions, 1)

	assert.True(t, l.CashBalance().Equal(d("903.25")), "got %s", l.CashBalance())

	cash, ok := l.CashPosition()
	require.True(t, ok)
	assert.Equal(t, CashSymbol, cash.Symbol)
	assert.True(t, cash.Quantity().Equal(d("903.25")))
	assert.True(t, cash.AverageCost().Equal(d("1")))
}

func TestApply_IsIdempotent(t *testing.T) {
	l := newTestLedger()

	first, err := l.Apply(aaplScenario())
	require.NoError(t, err)
	firstTrades := l.RealizedTrades()

	second, err := l.Apply(aaplScenario())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstTrades, l.RealizedTrades())
}

func TestApply_FIFOConservation(t *testing.T) {
	txs := []Transaction{
		trade(KindBuy, "A", "7", "10", "1", "2023-01-01"),
		trade(KindBuy, "A", "3.5", "11", "1", "2023-01-05"),
		trade(KindSell, "A", "4", "12", "1", "2023-01-09"),
		trade(KindBuy, "A", "2", "9", "0", "2023-01-10"),
		trade(KindSell, "A", "6.25", "13", "1", "2023-01-20"),
		trade(KindBuy, "B", "1", "10", "0", "2023-01-01"),
		trade(KindSell, "B", "0.4", "10", "0", "2023-01-03"),
	}

	l := newTestLedger()
	_, err := l.Apply(txs)
	require.NoError(t, err)

	bought := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Kind == KindBuy {
			bought[tx.Symbol] = bought[tx.Symbol].Add(tx.Quantity)
		}
	}

	for symbol, total := range bought {
		accounted := decimal.Zero
		for _, rt := range l.RealizedTrades() {
			if rt.Symbol == symbol {
				accounted = accounted.Add(rt.Quantity)
			}
		}
		if pos, ok := l.Position(symbol); ok {
			accounted = accounted.Add(pos.Quantity())
		}
		assert.True(t, total.Equal(accounted), "%s: bought %s, accounted %s", symbol, total, accounted)
	}
}

func TestApply_RejectsInvalidTransactions(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
	}{
		{"zero quantity", trade(KindBuy, "AAPL", "0", "10", "0", "2023-01-01")},
		{"negative price", trade(KindBuy, "AAPL", "1", "-1", "0", "2023-01-01")},
		{"negative fees", trade(KindSell, "AAPL", "1", "1", "-1", "2023-01-01")},
		{"missing symbol", trade(KindBuy, "", "1", "1", "0", "2023-01-01")},
		{"unknown kind", trade(Kind("SPLIT"), "AAPL", "1", "1", "0", "2023-01-01")},
		{"missing date", Transaction{Kind: KindBuy, Symbol: "AAPL", Quantity: d("1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger()
			_, err := l.Apply([]Transaction{tt.tx})
			assert.ErrorIs(t, err, ErrInvalidTransaction)
			assert.Empty(t, l.Positions())
		})
	}
}

func TestCostBasisAndCurrentPositions(t *testing.T) {
	l := newTestLedger()
	_, err := l.Apply(aaplScenario())
	require.NoError(t, err)

	assert.True(t, l.CurrentPositions()["AAPL"].Equal(d("125")))
	// (75*150 + 7.5 + 50*180 + 10) / 125
	assert.True(t, l.CostBasis()["AAPL"].Equal(d("162.14")), "got %s", l.CostBasis()["AAPL"])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" b ")
	require.NoError(t, err)
	assert.Equal(t, KindBuy, k)

	k, err = ParseKind("interest_income")
	require.NoError(t, err)
	assert.Equal(t, KindInterest, k)

	_, err = ParseKind("short")
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestCashAmount(t *testing.T) {
	assert.True(t, trade(KindBuy, "A", "10", "5", "1", "2023-01-01").CashAmount().Equal(d("-51")))
	assert.True(t, trade(KindSell, "A", "10", "5", "1", "2023-01-01").CashAmount().Equal(d("49")))
	assert.True(t, Transaction{Kind: KindWithdraw, Quantity: d("20")}.CashAmount().Equal(d("-20")))
	assert.True(t, Transaction{Kind: KindDividend, Quantity: d("4"), Price: d("0.25")}.CashAmount().Equal(d("1")))
}
