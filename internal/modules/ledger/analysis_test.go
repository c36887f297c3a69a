package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCosts(t *testing.T) {
	txs := append(aaplScenario(),
		trade(KindBuy, "MSFT", "10", "300", "5", "2023-02-01"),
		Transaction{Kind: KindDeposit, Quantity: d("1000"), Fees: d("1"), Date: day("2023-01-01")},
	)

	costs := AnalyzeCosts(txs)

	assert.InDelta(t, 35.0, costs.TotalFees, 1e-9)
	assert.InDelta(t, 15000+9000+5000+3000, costs.TotalVolume, 1e-9)
	assert.InDelta(t, 35.0/32000, costs.OverallFeeRate, 1e-12)
	assert.InDelta(t, 35.0/4, costs.AvgFeePerTrade, 1e-12)
	assert.InDelta(t, 30.0, costs.FeesBySymbol["AAPL"], 1e-9)
	assert.InDelta(t, 5.0/3000, costs.FeeRateBySymbol["MSFT"], 1e-12)
}

func TestAnalyzeCosts_Empty(t *testing.T) {
	costs := AnalyzeCosts(nil)
	assert.Zero(t, costs.TotalFees)
	assert.Zero(t, costs.OverallFeeRate)
	assert.Empty(t, costs.FeesBySymbol)
}

func TestAnalyzeActivity(t *testing.T) {
	txs := []Transaction{
		trade(KindBuy, "AAPL", "10", "100", "0", "2023-01-02"), // Monday
		trade(KindBuy, "MSFT", "5", "200", "0", "2023-01-02"),
		trade(KindSell, "AAPL", "5", "120", "0", "2023-01-04"), // Wednesday
		{Kind: KindDeposit, Quantity: d("50"), Date: day("2023-01-05")},
	}

	a := AnalyzeActivity(txs)

	assert.Equal(t, 3, a.TotalTrades)
	assert.Equal(t, 2, a.TradingDays)
	assert.InDelta(t, 1.5, a.AvgTradesPerDay, 1e-12)
	assert.InDelta(t, 2.0, a.BuySellRatio, 1e-12)
	assert.InDelta(t, 1300.0, a.AvgDailyVolume, 1e-9)
	assert.InDelta(t, 2000.0, a.MaxDailyVolume, 1e-9)
	assert.Equal(t, 2, a.DayOfWeekActivity["Monday"])
	assert.Equal(t, 1, a.DayOfWeekActivity["Wednesday"])
}

func TestAnalyzeActivity_NoSells(t *testing.T) {
	a := AnalyzeActivity([]Transaction{trade(KindBuy, "AAPL", "1", "1", "0", "2023-01-02")})
	assert.Equal(t, 0.0, a.BuySellRatio)
	assert.Equal(t, 0.0, a.VolumeStdDev)
}

func TestSummarize(t *testing.T) {
	txs := append(aaplScenario(),
		trade(KindBuy, "MSFT", "1", "1", "0", "2022-12-15"),
		Transaction{Kind: KindDividend, Symbol: "AAPL", Quantity: d("2"), Date: day("2024-01-15")},
	)

	s := Summarize(txs)

	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 3, s.Buys)
	assert.Equal(t, 1, s.Sells)
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols)
	assert.Equal(t, 1, s.ByKind[KindDividend])
	require.NotNil(t, s.FirstDate)
	require.NotNil(t, s.LastDate)
	assert.Equal(t, day("2022-12-15"), *s.FirstDate)
	assert.Equal(t, day("2024-01-15"), *s.LastDate)
}
