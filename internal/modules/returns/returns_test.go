package returns

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(kind ledger.Kind, symbol string, qty, price float64, date string) ledger.Transaction {
	return ledger.Transaction{
		Symbol:   symbol,
		Kind:     kind,
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
		Date:     day(date),
	}
}

// Buys on the 30th and 31st of January, a partial sale on 1 February,
// with the price rising 100 -> 110 -> 120.
func risingTrades() ([]ledger.Transaction, PriceFunc) {
	txs := []ledger.Transaction{
		tx(ledger.KindSell, "XYZ", 5, 120, "2024-02-01"),
		tx(ledger.KindBuy, "XYZ", 10, 100, "2024-01-30"),
		tx(ledger.KindDeposit, "", 5000, 0, "2024-01-29"),
		tx(ledger.KindBuy, "XYZ", 10, 110, "2024-01-31"),
	}
	prices := map[string]float64{"2024-01-29": 95, "2024-01-30": 100, "2024-01-31": 110, "2024-02-01": 120}
	price := func(symbol string, date time.Time) (float64, bool) {
		p, ok := prices[date.Format("2006-01-02")]
		return p, ok && symbol == "XYZ"
	}
	return txs, price
}

func TestTWR(t *testing.T) {
	tests := []struct {
		name     string
		points   []ValuationPoint
		expected float64
	}{
		{"single period without flows is the simple return", []ValuationPoint{{Value: 1000}, {Value: 1100}}, 0.10},
		{"flows are removed before chaining", []ValuationPoint{{Value: 1000}, {Value: 1100}, {Value: 1650, NetFlow: 500}}, 0.15},
		{"empty start is a zero period", []ValuationPoint{{Value: 0}, {Value: 100, NetFlow: 100}}, 0},
		{"fewer than two points", []ValuationPoint{{Value: 1000}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TWR(tt.points), 1e-12)
		})
	}
}

func TestValuationPoints(t *testing.T) {
	txs, price := risingTrades()

	points := ValuationPoints(txs, price)
	require.Len(t, points, 3)
	assert.InDelta(t, 1000, points[0].Value, 1e-9)
	assert.InDelta(t, 1000, points[0].NetFlow, 1e-9)
	assert.InDelta(t, 2200, points[1].Value, 1e-9)
	assert.InDelta(t, 1100, points[1].NetFlow, 1e-9)
	assert.InDelta(t, 1800, points[2].Value, 1e-9)
	assert.InDelta(t, -600, points[2].NetFlow, 1e-9)

	// price went 100 -> 120 regardless of the flows
	assert.InDelta(t, 0.20, TWR(points), 1e-12)
}

func TestDailyValuesAndMonthlyReturns(t *testing.T) {
	txs, price := risingTrades()
	dates := []time.Time{day("2024-02-01"), day("2024-01-29"), day("2024-01-30"), day("2024-01-31")}

	daily := DailyValues(txs, dates, price)
	require.Len(t, daily, 3, "days before the first trade are skipped")

	returns := FlowAdjustedReturns(daily)
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, 200.0/2200.0, returns[1], 1e-12)

	months := MonthlyReturns(daily)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-01", months[0].Month)
	assert.InDelta(t, 0.10, months[0].Return, 1e-12)
	assert.InDelta(t, 1000, months[0].StartValue, 1e-9)
	assert.InDelta(t, 2200, months[0].EndValue, 1e-9)
	assert.Equal(t, "2024-02", months[1].Month)
	assert.InDelta(t, -600, months[1].NetFlow, 1e-9)
}

func TestPerformanceFromReturns(t *testing.T) {
	t.Run("flat series is neutral", func(t *testing.T) {
		perf := PerformanceFromReturns(make([]float64, 50), 0.02)
		assert.Equal(t, 0.0, perf.SharpeRatio)
		assert.Equal(t, 0.0, float64(perf.SortinoRatio))
		assert.Equal(t, 0.0, perf.CalmarRatio)
		assert.Equal(t, 0.0, perf.MaxDrawdown)
	})

	t.Run("extremes and drawdown", func(t *testing.T) {
		perf := PerformanceFromReturns([]float64{0.01, -0.02, 0.03, -0.01}, 0.02)
		assert.Equal(t, 4, perf.Days)
		assert.Equal(t, 0.03, perf.BestDay)
		assert.Equal(t, -0.02, perf.WorstDay)
		assert.LessOrEqual(t, perf.MaxDrawdown, 0.0)
		assert.Greater(t, perf.Volatility, 0.0)
	})
}

func TestTradeStatistics(t *testing.T) {
	pnls := []float64{100, -50, 0, 200, -25}
	trades := make([]ledger.RealizedTrade, len(pnls))
	for i, p := range pnls {
		trades[i] = ledger.RealizedTrade{Symbol: "XYZ", PnL: decimal.NewFromFloat(p), HoldingDays: 10 * (i + 1)}
	}

	stats := TradeStatistics(trades)
	assert.Equal(t, 5, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.InDelta(t, 0.4, stats.WinRate, 1e-12)
	assert.InDelta(t, 150, stats.AverageWin, 1e-9)
	assert.InDelta(t, -37.5, stats.AverageLoss, 1e-9)
	assert.InDelta(t, 4.0, stats.ProfitFactor, 1e-12)
	assert.Equal(t, 200.0, stats.LargestWin)
	assert.Equal(t, -50.0, stats.LargestLoss)
	assert.InDelta(t, 225, stats.TotalRealizedPnL, 1e-9)
	assert.InDelta(t, 30, stats.AverageHoldingDays, 1e-9)

	onlyWins := TradeStatistics(trades[:1])
	assert.Equal(t, 0.0, onlyWins.ProfitFactor)
	assert.Equal(t, TradeStats{}, TradeStatistics(nil))
}

func TestCalculator_Calculate(t *testing.T) {
	calc := NewCalculator(0.02, zerolog.New(nil).Level(zerolog.Disabled))
	txs, price := risingTrades()

	res := calc.Calculate(Input{
		Transactions:  txs,
		CurrentValue:  1800,
		ValuationDate: day("2024-02-01"),
		Price:         price,
		Dates:         []time.Time{day("2024-01-30"), day("2024-01-31"), day("2024-02-01")},
	})

	require.NotNil(t, res.XIRR)
	assert.Greater(t, *res.XIRR, 0.0)
	assert.Empty(t, res.Unavailable)
	assert.InDelta(t, 0.20, res.TWR, 1e-12)
	assert.InDelta(t, 2100, res.TotalInvested, 1e-9)
	assert.InDelta(t, 600, res.TotalWithdrawn, 1e-9)
	assert.InDelta(t, (1800+600)/2100.0-1, res.TotalReturn, 1e-12)
	assert.Len(t, res.Monthly, 2)
	assert.Equal(t, 2, res.Performance.Days)
}

func TestCalculator_MarksXIRRUnavailable(t *testing.T) {
	calc := NewCalculator(0.02, zerolog.New(nil).Level(zerolog.Disabled))

	res := calc.Calculate(Input{
		Transactions:  []ledger.Transaction{tx(ledger.KindBuy, "XYZ", 1000, 1, "2023-01-01")},
		CurrentValue:  5,
		ValuationDate: day("2023-01-01").Add(oneYear),
	})

	assert.Nil(t, res.XIRR)
	assert.Contains(t, res.Unavailable, "xirr")
	assert.Equal(t, 0.0, res.TWR)
}
