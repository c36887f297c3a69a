// Package portfolio assembles the current state of the portfolio from the
// stored transactions and live prices.
package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
)

// PortfolioService builds portfolio snapshots.
//
// Responsibilities:
//   - Replay stored transactions through a fresh FIFO ledger
//   - Price the open positions
//   - Derive market-value weights for the risk and simulation engines
//
// Dependencies:
//   - ledger.TransactionRepositoryInterface: transaction source
//   - domain.PriceProvider: current prices and price history
//
// Every call builds its own ledger, so concurrent requests never share state.
type PortfolioService struct {
	repo   ledger.TransactionRepositoryInterface
	prices domain.PriceProvider
	log    zerolog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(
	repo ledger.TransactionRepositoryInterface,
	prices domain.PriceProvider,
	log zerolog.Logger,
) *PortfolioService {
	return &PortfolioService{
		repo:   repo,
		prices: prices,
		log:    log.With().Str("service", "portfolio").Logger(),
	}
}

// Load replays all transactions and prices the open positions
func (s *PortfolioService) Load(ctx context.Context) (*Snapshot, error) {
	txs, err := s.repo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	l := ledger.New(s.log)
	positions, err := l.Apply(txs)
	if err != nil {
		return nil, fmt.Errorf("failed to apply transactions: %w", err)
	}

	snap := &Snapshot{
		AsOf:           time.Now().UTC(),
		Transactions:   l.Transactions(),
		Positions:      positions,
		RealizedTrades: l.RealizedTrades(),
		Oversells:      l.Oversells(),
		CashBalance:    l.CashBalance(),
		Prices:         map[string]float64{},
	}

	symbols := snap.Symbols()
	if len(symbols) == 0 {
		return snap, nil
	}

	prices, err := s.prices.GetCurrentPrices(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to get current prices: %w", err)
	}
	for _, symbol := range symbols {
		if p, ok := prices[symbol]; ok && p > 0 {
			snap.Prices[symbol] = p
		} else {
			snap.MissingPrices = append(snap.MissingPrices, symbol)
		}
	}

	if len(snap.MissingPrices) > 0 {
		s.log.Warn().Strs("symbols", snap.MissingPrices).Msg("No current price for open positions")
	}

	s.log.Debug().
		Int("transactions", len(txs)).
		Int("positions", len(positions)).
		Msg("Portfolio snapshot loaded")

	return snap, nil
}

// History fetches price history for symbols plus the optional benchmark
func (s *PortfolioService) History(ctx context.Context, symbols []string, benchmark, period string) (*domain.PriceTable, error) {
	request := append([]string{}, symbols...)
	if benchmark != "" {
		request = append(request, benchmark)
	}
	if len(request) == 0 {
		return domain.NewPriceTable(nil), nil
	}

	table, err := s.prices.GetPriceSeries(ctx, request, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	return table, nil
}

// Snapshot is the state of the portfolio at one instant
type Snapshot struct {
	AsOf           time.Time              `json:"as_of"`
	Transactions   []ledger.Transaction   `json:"-"`
	Positions      []ledger.Position      `json:"positions"`
	RealizedTrades []ledger.RealizedTrade `json:"realized_trades"`
	Oversells      []ledger.Oversell      `json:"oversells,omitempty"`
	CashBalance    decimal.Decimal        `json:"cash_balance"`
	Prices         map[string]float64     `json:"prices"`
	MissingPrices  []string               `json:"missing_prices,omitempty"`
}

// Symbols lists the symbols of the open positions
func (s *Snapshot) Symbols() []string {
	symbols := make([]string, 0, len(s.Positions))
	for _, p := range s.Positions {
		symbols = append(symbols, p.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// MarketValue is quantity times current price for one open position
func (s *Snapshot) MarketValue(symbol string) (float64, bool) {
	price, ok := s.Prices[symbol]
	if !ok {
		return 0, false
	}
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p.Quantity().InexactFloat64() * price, true
		}
	}
	return 0, false
}

// TotalMarketValue sums the market value of every priced position
func (s *Snapshot) TotalMarketValue() float64 {
	total := 0.0
	for _, p := range s.Positions {
		if v, ok := s.MarketValue(p.Symbol); ok {
			total += v
		}
	}
	return total
}

// Weights are the market-value weights of the priced positions
func (s *Snapshot) Weights() map[string]float64 {
	total := s.TotalMarketValue()
	weights := make(map[string]float64, len(s.Positions))
	if total <= 0 {
		return weights
	}
	for _, p := range s.Positions {
		if v, ok := s.MarketValue(p.Symbol); ok {
			weights[p.Symbol] = v / total
		}
	}
	return weights
}
