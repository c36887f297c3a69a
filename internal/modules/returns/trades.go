package returns

import (
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// TradeStats summarizes realized trades. Losses are reported as negative amounts.
type TradeStats struct {
	TotalTrades        int     `json:"total_trades"`
	WinningTrades      int     `json:"winning_trades"`
	LosingTrades       int     `json:"losing_trades"`
	WinRate            float64 `json:"win_rate"`
	AverageWin         float64 `json:"avg_win"`
	AverageLoss        float64 `json:"avg_loss"`
	ProfitFactor       float64 `json:"profit_factor"`
	LargestWin         float64 `json:"largest_win"`
	LargestLoss        float64 `json:"largest_loss"`
	TotalRealizedPnL   float64 `json:"total_realized_pnl"`
	AverageHoldingDays float64 `json:"avg_holding_days"`
}

// TradeStatistics computes win/loss statistics. Break-even trades count
// toward the total but neither wins nor losses. Profit factor is 0 when
// there are no losing trades.
func TradeStatistics(trades []ledger.RealizedTrade) TradeStats {
	stats := TradeStats{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	var grossWins, grossLosses float64
	holding := 0
	for _, t := range trades {
		pnl := t.PnL.InexactFloat64()
		stats.TotalRealizedPnL += pnl
		holding += t.HoldingDays

		switch {
		case pnl > 0:
			stats.WinningTrades++
			grossWins += pnl
			if pnl > stats.LargestWin {
				stats.LargestWin = pnl
			}
		case pnl < 0:
			stats.LosingTrades++
			grossLosses += pnl
			if pnl < stats.LargestLoss {
				stats.LargestLoss = pnl
			}
		}
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	if stats.WinningTrades > 0 {
		stats.AverageWin = grossWins / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AverageLoss = grossLosses / float64(stats.LosingTrades)
	}
	stats.ProfitFactor = formulas.ProfitFactor(grossWins, grossLosses)
	stats.AverageHoldingDays = float64(holding) / float64(len(trades))
	return stats
}
