// Package report merges ledger, return, risk and simulation results into a
// single performance report.
package report

import (
	"sort"
	"time"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	"github.com/aristath/sentinel-analytics/pkg/formulas"
)

// PositionReport values one open position. Returns and weights are fractions.
// CurrentPrice is nil when the symbol could not be priced; its market value
// and unrealized P&L are then zero.
type PositionReport struct {
	Quantity         float64  `json:"quantity"`
	AvgCost          float64  `json:"avg_cost"`
	CostBasis        float64  `json:"cost_basis"`
	CurrentPrice     *float64 `json:"current_price"`
	MarketValue      float64  `json:"market_value"`
	UnrealizedPnL    float64  `json:"unrealized_pnl"`
	UnrealizedPnLPct float64  `json:"unrealized_pnl_pct"`
	Weight           float64  `json:"weight"`
}

// Summary is the portfolio-level headline
type Summary struct {
	TotalInvested     float64 `json:"total_invested"`
	TotalWithdrawn    float64 `json:"total_withdrawn"`
	CurrentValue      float64 `json:"current_value"`
	TotalReturn       float64 `json:"total_return"`
	TotalReturnPct    float64 `json:"total_return_pct"`
	AnnualizedReturn  float64 `json:"annualized_return"`
	HoldingPeriodDays int     `json:"holding_period_days"`
	RealizedPnL       float64 `json:"realized_pnl"`
	UnrealizedPnL     float64 `json:"unrealized_pnl"`
	CashBalance       float64 `json:"cash_balance"`
	PositionCount     int     `json:"position_count"`
	TransactionCount  int     `json:"transaction_count"`
}

// SimulationSummary is the forward-looking part of the report
type SimulationSummary struct {
	Percentiles       montecarlo.Percentiles `json:"percentiles"`
	ProbabilityOfLoss float64                `json:"probability_of_loss"`
	MeanFinalValue    float64                `json:"mean_final_value"`
	ExpectedReturn    float64                `json:"expected_return"`
	Volatility        float64                `json:"volatility"`
	VaR5              float64                `json:"var_5"`
	HorizonDays       int                    `json:"horizon_days"`
	NumPaths          int                    `json:"num_paths"`
	Seed              uint64                 `json:"seed"`
}

// Report is the full performance report
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Period      string    `json:"period"`
	Benchmark   string    `json:"benchmark,omitempty"`

	Positions      map[string]PositionReport `json:"positions"`
	RealizedTrades []ledger.RealizedTrade    `json:"realized_trades"`

	XIRR          *float64       `json:"xirr"`
	TWR           float64        `json:"twr"`
	SharpeRatio   float64        `json:"sharpe_ratio"`
	SortinoRatio  formulas.Ratio `json:"sortino_ratio"`
	MaxDrawdown   float64        `json:"max_drawdown"`
	VaR5          float64        `json:"var_5"`
	CVaR5         float64        `json:"cvar_5"`
	Beta          float64        `json:"beta"`
	TrackingError float64        `json:"tracking_error"`

	Simulation *SimulationSummary `json:"simulation,omitempty"`

	Summary            Summary                 `json:"summary"`
	Risk               risk.Metrics            `json:"risk_metrics"`
	Performance        returns.Performance     `json:"performance"`
	Monthly            []returns.MonthlyReturn `json:"monthly_performance"`
	Trades             returns.TradeStats      `json:"trade_statistics"`
	Costs              ledger.CostAnalysis     `json:"cost_analysis"`
	Activity           ledger.ActivityAnalysis `json:"activity_analysis"`
	TransactionSummary ledger.Summary          `json:"transaction_summary"`
	Oversells          []ledger.Oversell       `json:"oversells,omitempty"`

	Warnings    []string          `json:"warnings,omitempty"`
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// Inputs are the computed fragments the report is merged from
type Inputs struct {
	ID          string
	GeneratedAt time.Time
	Period      string
	Benchmark   string

	Snapshot   *portfolio.Snapshot
	Returns    *returns.Result
	Risk       risk.Metrics
	Simulation *montecarlo.Result
	Costs      ledger.CostAnalysis
	Activity   ledger.ActivityAnalysis
	Summary    ledger.Summary

	Warnings    []string
	Unavailable map[string]string
}

// Build merges the inputs. It derives only position valuations, weights and
// summary totals; every other figure is copied from its fragment.
func Build(in Inputs) *Report {
	snap := in.Snapshot
	if snap == nil {
		snap = &portfolio.Snapshot{}
	}
	ret := in.Returns
	if ret == nil {
		ret = &returns.Result{}
	}

	r := &Report{
		ID:                 in.ID,
		GeneratedAt:        in.GeneratedAt,
		Period:             in.Period,
		Benchmark:          in.Benchmark,
		Positions:          make(map[string]PositionReport, len(snap.Positions)),
		RealizedTrades:     snap.RealizedTrades,
		XIRR:               ret.XIRR,
		TWR:                ret.TWR,
		SharpeRatio:        in.Risk.SharpeRatio,
		SortinoRatio:       in.Risk.SortinoRatio,
		MaxDrawdown:        in.Risk.MaxDrawdown,
		VaR5:               in.Risk.VaR5,
		CVaR5:              in.Risk.CVaR5,
		Beta:               in.Risk.Beta,
		TrackingError:      in.Risk.TrackingError,
		Risk:               in.Risk,
		Performance:        ret.Performance,
		Monthly:            ret.Monthly,
		Trades:             ret.Trades,
		Costs:              in.Costs,
		Activity:           in.Activity,
		TransactionSummary: in.Summary,
		Oversells:          snap.Oversells,
		Warnings:           append([]string{}, in.Warnings...),
		Unavailable:        mergeUnavailable(ret.Unavailable, in.Unavailable),
	}
	if r.RealizedTrades == nil {
		r.RealizedTrades = []ledger.RealizedTrade{}
	}
	if r.Monthly == nil {
		r.Monthly = []returns.MonthlyReturn{}
	}

	totalValue := snap.TotalMarketValue()
	unrealized := 0.0
	for _, p := range snap.Positions {
		pr := PositionReport{
			Quantity:  p.Quantity().InexactFloat64(),
			AvgCost:   p.AverageCost().InexactFloat64(),
			CostBasis: p.Cost().InexactFloat64(),
		}
		if price, ok := snap.Prices[p.Symbol]; ok {
			current := price
			pr.CurrentPrice = &current
			pr.MarketValue = pr.Quantity * price
			pr.UnrealizedPnL = pr.MarketValue - pr.CostBasis
			if pr.CostBasis > 0 {
				pr.UnrealizedPnLPct = pr.UnrealizedPnL / pr.CostBasis
			}
			if totalValue > 0 {
				pr.Weight = pr.MarketValue / totalValue
			}
			unrealized += pr.UnrealizedPnL
		}
		r.Positions[p.Symbol] = pr
	}

	for _, symbol := range snap.MissingPrices {
		r.Warnings = append(r.Warnings, "no current price for "+symbol)
	}

	realized := 0.0
	for _, t := range snap.RealizedTrades {
		realized += t.PnL.InexactFloat64()
	}

	r.Summary = Summary{
		TotalInvested:     ret.TotalInvested,
		TotalWithdrawn:    ret.TotalWithdrawn,
		CurrentValue:      totalValue,
		TotalReturn:       totalValue + ret.TotalWithdrawn - ret.TotalInvested,
		TotalReturnPct:    ret.TotalReturn,
		AnnualizedReturn:  annualized(ret),
		HoldingPeriodDays: holdingPeriodDays(in.Summary.FirstDate, in.GeneratedAt),
		RealizedPnL:       realized,
		UnrealizedPnL:     unrealized,
		CashBalance:       snap.CashBalance.InexactFloat64(),
		PositionCount:     len(snap.Positions),
		TransactionCount:  in.Summary.Count,
	}

	if sim := in.Simulation; sim != nil {
		r.Simulation = &SimulationSummary{
			Percentiles:       sim.Percentiles,
			ProbabilityOfLoss: sim.ProbabilityOfLoss,
			MeanFinalValue:    sim.MeanFinalValue,
			ExpectedReturn:    sim.ExpectedReturn,
			Volatility:        sim.Volatility,
			VaR5:              sim.VaR5,
			HorizonDays:       sim.HorizonDays,
			NumPaths:          sim.NumPaths,
			Seed:              sim.Seed,
		}
	}

	sort.Strings(r.Warnings)
	if len(r.Warnings) == 0 {
		r.Warnings = nil
	}

	return r
}

// annualized prefers the money-weighted XIRR, falling back to the annualized
// mean of the daily value series
func annualized(ret *returns.Result) float64 {
	if ret.XIRR != nil {
		return *ret.XIRR
	}
	return ret.Performance.AnnualizedReturn
}

func holdingPeriodDays(first *time.Time, asOf time.Time) int {
	if first == nil || asOf.Before(*first) {
		return 0
	}
	return int(asOf.Sub(*first).Hours() / 24)
}

func mergeUnavailable(maps ...map[string]string) map[string]string {
	var out map[string]string
	for _, m := range maps {
		for k, v := range m {
			if out == nil {
				out = make(map[string]string)
			}
			out[k] = v
		}
	}
	return out
}
