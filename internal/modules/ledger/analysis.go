package ledger

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/pkg/formulas"
	"github.com/shopspring/decimal"
)

// CostAnalysis summarizes trading fees against traded volume
type CostAnalysis struct {
	TotalFees       float64            `json:"total_fees"`
	TotalVolume     float64            `json:"total_volume"`
	OverallFeeRate  float64            `json:"overall_fee_rate"`
	AvgFeePerTrade  float64            `json:"avg_fee_per_trade"`
	FeesBySymbol    map[string]float64 `json:"fee_by_symbol"`
	FeeRateBySymbol map[string]float64 `json:"fee_rates_by_symbol"`
}

// AnalyzeCosts computes fee totals and rates over BUY and SELL transactions
func AnalyzeCosts(transactions []Transaction) CostAnalysis {
	result := CostAnalysis{
		FeesBySymbol:    make(map[string]float64),
		FeeRateBySymbol: make(map[string]float64),
	}

	fees := decimal.Zero
	volume := decimal.Zero
	feesBySymbol := make(map[string]decimal.Decimal)
	volumeBySymbol := make(map[string]decimal.Decimal)
	trades := 0

	for _, tx := range transactions {
		if !tx.Kind.IsTrade() {
			continue
		}
		trades++
		fees = fees.Add(tx.Fees)
		volume = volume.Add(tx.GrossAmount())
		feesBySymbol[tx.Symbol] = feesBySymbol[tx.Symbol].Add(tx.Fees)
		volumeBySymbol[tx.Symbol] = volumeBySymbol[tx.Symbol].Add(tx.GrossAmount())
	}

	result.TotalFees = fees.InexactFloat64()
	result.TotalVolume = volume.InexactFloat64()
	if volume.IsPositive() {
		result.OverallFeeRate = fees.Div(volume).InexactFloat64()
	}
	if trades > 0 {
		result.AvgFeePerTrade = result.TotalFees / float64(trades)
	}

	for symbol, f := range feesBySymbol {
		result.FeesBySymbol[symbol] = f.InexactFloat64()
		if v := volumeBySymbol[symbol]; v.IsPositive() {
			result.FeeRateBySymbol[symbol] = f.Div(v).InexactFloat64()
		}
	}

	return result
}

// ActivityAnalysis describes trading frequency and daily volume
type ActivityAnalysis struct {
	TotalTrades       int            `json:"total_trades"`
	TradingDays       int            `json:"trading_days"`
	AvgTradesPerDay   float64        `json:"avg_trades_per_day"`
	BuySellRatio      float64        `json:"buy_sell_ratio"` // 0 when there are no sells
	AvgDailyVolume    float64        `json:"avg_daily_volume"`
	MaxDailyVolume    float64        `json:"max_daily_volume"`
	VolumeStdDev      float64        `json:"volume_std"`
	DayOfWeekActivity map[string]int `json:"day_of_week_distribution"`
}

// AnalyzeActivity groups BUY and SELL transactions by calendar day
func AnalyzeActivity(transactions []Transaction) ActivityAnalysis {
	result := ActivityAnalysis{DayOfWeekActivity: make(map[string]int)}

	dailyVolume := make(map[string]float64)
	buys, sells := 0, 0

	for _, tx := range transactions {
		switch tx.Kind {
		case KindBuy:
			buys++
		case KindSell:
			sells++
		default:
			continue
		}
		day := tx.Date.Format("2006-01-02")
		dailyVolume[day] += tx.GrossAmount().InexactFloat64()
		result.DayOfWeekActivity[tx.Date.Weekday().String()]++
	}

	result.TotalTrades = buys + sells
	result.TradingDays = len(dailyVolume)
	if result.TradingDays == 0 {
		return result
	}

	result.AvgTradesPerDay = float64(result.TotalTrades) / float64(result.TradingDays)
	if sells > 0 {
		result.BuySellRatio = float64(buys) / float64(sells)
	}

	volumes := make([]float64, 0, len(dailyVolume))
	for _, v := range dailyVolume {
		volumes = append(volumes, v)
		if v > result.MaxDailyVolume {
			result.MaxDailyVolume = v
		}
	}
	result.AvgDailyVolume = formulas.Mean(volumes)
	result.VolumeStdDev = formulas.StdDev(volumes)

	return result
}

// Summary counts transactions by kind and spans the covered dates
type Summary struct {
	Count     int          `json:"total_transactions"`
	FirstDate *time.Time   `json:"first_date,omitempty"`
	LastDate  *time.Time   `json:"last_date,omitempty"`
	Symbols   []string     `json:"symbols"`
	Buys      int          `json:"buys"`
	Sells     int          `json:"sells"`
	ByKind    map[Kind]int `json:"by_kind"`
}

// Summarize produces a Summary; symbols are sorted and exclude cash entries
func Summarize(transactions []Transaction) Summary {
	s := Summary{Count: len(transactions), ByKind: make(map[Kind]int), Symbols: []string{}}

	seen := make(map[string]bool)
	for i := range transactions {
		tx := transactions[i]
		s.ByKind[tx.Kind]++
		switch tx.Kind {
		case KindBuy:
			s.Buys++
		case KindSell:
			s.Sells++
		}
		if tx.Kind.IsTrade() && !seen[tx.Symbol] {
			seen[tx.Symbol] = true
			s.Symbols = append(s.Symbols, tx.Symbol)
		}
		if s.FirstDate == nil || tx.Date.Before(*s.FirstDate) {
			d := tx.Date
			s.FirstDate = &d
		}
		if s.LastDate == nil || tx.Date.After(*s.LastDate) {
			d := tx.Date
			s.LastDate = &d
		}
	}
	sort.Strings(s.Symbols)

	return s
}
