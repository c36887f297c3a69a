package returns

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
)

// Input is everything the calculator needs for one portfolio
type Input struct {
	Transactions   []ledger.Transaction
	RealizedTrades []ledger.RealizedTrade
	CurrentValue   float64
	ValuationDate  time.Time
	Price          PriceFunc
	Dates          []time.Time // trading days for the daily value series
}

// Result is the return analysis of one portfolio.
// XIRR is nil when the solver failed; the reason is listed under Unavailable.
type Result struct {
	XIRR           *float64          `json:"xirr"`
	XIRRMethod     Method            `json:"xirr_method,omitempty"`
	TWR            float64           `json:"twr"`
	TotalInvested  float64           `json:"total_invested"`
	TotalWithdrawn float64           `json:"total_withdrawn"`
	CurrentValue   float64           `json:"current_value"`
	TotalReturn    float64           `json:"total_return"`
	Performance    Performance       `json:"performance"`
	Monthly        []MonthlyReturn   `json:"monthly_performance"`
	Trades         TradeStats        `json:"trade_statistics"`
	Unavailable    map[string]string `json:"unavailable,omitempty"`
}

// Calculator computes return metrics
type Calculator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewCalculator creates a calculator using riskFreeRate for the ratios
func NewCalculator(riskFreeRate float64, log zerolog.Logger) *Calculator {
	return &Calculator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "returns").Logger(),
	}
}

// Calculate runs the full return analysis. It never fails as a whole: a
// metric that cannot be computed is reported under Result.Unavailable.
func (c *Calculator) Calculate(in Input) *Result {
	price := in.Price
	if price == nil {
		price = func(string, time.Time) (float64, bool) { return 0, false }
	}

	flows := CashFlowsFromTransactions(in.Transactions)
	res := &Result{
		TotalInvested:  TotalInvested(flows),
		TotalWithdrawn: TotalWithdrawn(flows),
		CurrentValue:   in.CurrentValue,
		Trades:         TradeStatistics(in.RealizedTrades),
	}
	if res.TotalInvested > 0 {
		res.TotalReturn = (in.CurrentValue+res.TotalWithdrawn)/res.TotalInvested - 1
	}

	xirr, err := XIRR(flows, in.CurrentValue, in.ValuationDate)
	if err != nil {
		c.log.Warn().Err(err).Int("flows", len(flows)).Msg("XIRR unavailable")
		res.Unavailable = map[string]string{"xirr": err.Error()}
	} else {
		rate := xirr.Rate
		res.XIRR = &rate
		res.XIRRMethod = xirr.Method
		if xirr.Method != MethodNewton {
			c.log.Debug().Str("method", string(xirr.Method)).Float64("rate", rate).Msg("XIRR solved by fallback")
		}
	}

	res.TWR = TWR(ValuationPoints(in.Transactions, price))

	daily := DailyValues(in.Transactions, in.Dates, price)
	res.Performance = PerformanceFromReturns(FlowAdjustedReturns(daily), c.riskFreeRate)
	res.Monthly = MonthlyReturns(daily)

	c.log.Debug().
		Int("flows", len(flows)).
		Int("daily_points", len(daily)).
		Float64("twr", res.TWR).
		Msg("Returns calculated")

	return res
}
