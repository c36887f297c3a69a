package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	"github.com/aristath/sentinel-analytics/internal/modules/montecarlo"
	"github.com/aristath/sentinel-analytics/internal/modules/portfolio"
	"github.com/aristath/sentinel-analytics/internal/modules/returns"
	"github.com/aristath/sentinel-analytics/internal/modules/risk"
	testingpkg "github.com/aristath/sentinel-analytics/internal/testing"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// failingHistory serves snapshots but no price history
type failingHistory struct {
	*portfolio.PortfolioService
}

func (failingHistory) History(context.Context, []string, string, string) (*domain.PriceTable, error) {
	return nil, errors.New("upstream down")
}

type fixture struct {
	service  *Service
	loader   *portfolio.PortfolioService
	cache    *clientdata.Repository
	log      zerolog.Logger
	provider *testingpkg.StaticPriceProvider
}

func newFixture(t *testing.T, days int) fixture {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := ledger.NewTransactionRepository(testingpkg.NewTestDB(t, "ledger").Conn(), log)

	_, err := repo.CreateBatch([]ledger.Transaction{
		{Symbol: "AAA", Kind: ledger.KindBuy, Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100), Date: start},
		{Symbol: "BBB", Kind: ledger.KindBuy, Quantity: decimal.NewFromInt(20), Price: decimal.NewFromInt(50), Date: start},
		{Symbol: "BBB", Kind: ledger.KindSell, Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(55), Date: start.AddDate(0, 1, 0)},
	})
	require.NoError(t, err)

	provider := testingpkg.NewStaticPriceProvider(start, map[string][]float64{
		"AAA": testingpkg.PriceWalk(100, days, 0.001, 0.02, 0),
		"BBB": testingpkg.PriceWalk(50, days, 0.0005, 0.015, 1.1),
		"SPY": testingpkg.PriceWalk(400, days, 0.0004, 0.01, 2.0),
	})

	loader := portfolio.NewPortfolioService(repo, provider, log)
	cache := clientdata.NewRepository(testingpkg.NewTestDB(t, "cache").Conn())

	return fixture{
		service:  newService(loader, cache, log),
		loader:   loader,
		cache:    cache,
		log:      log,
		provider: provider,
	}
}

func newService(loader PortfolioLoader, cache Cache, log zerolog.Logger) *Service {
	return NewService(
		loader,
		returns.NewCalculator(0.02, log),
		risk.NewEngine(0.02, log),
		montecarlo.NewSimulator(0.02, 0, log),
		cache,
		log,
	)
}

func seeded(seed uint64) *uint64 { return &seed }

func TestService_Generate(t *testing.T) {
	f := newFixture(t, 120)
	opts := Options{Period: "1y", Benchmark: "SPY", Simulate: true, HorizonDays: 63, NumPaths: 200, Seed: seeded(7)}

	r, err := f.service.Generate(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	require.Len(t, r.Positions, 2)
	assert.InDelta(t, 1.0, r.Positions["AAA"].Weight+r.Positions["BBB"].Weight, 1e-9)
	assert.InDelta(t, 15.0, r.Positions["BBB"].Quantity, 1e-9)
	assert.Len(t, r.RealizedTrades, 1)

	require.NotNil(t, r.XIRR)
	assert.Greater(t, r.Risk.Observations, 100)
	assert.True(t, r.Risk.HasBenchmark)
	assert.LessOrEqual(t, r.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, r.CVaR5, r.VaR5)

	require.NotNil(t, r.Simulation)
	assert.Equal(t, uint64(7), r.Simulation.Seed)
	assert.LessOrEqual(t, r.Simulation.Percentiles.P5, r.Simulation.Percentiles.P50)
	assert.LessOrEqual(t, r.Simulation.Percentiles.P50, r.Simulation.Percentiles.P95)
	assert.Empty(t, r.Unavailable)
	assert.NotEmpty(t, r.Monthly)
	assert.Equal(t, 3, r.TransactionSummary.Count)
	assert.Greater(t, r.Costs.TotalVolume, 0.0)
}

func TestService_GenerateIsCached(t *testing.T) {
	f := newFixture(t, 60)
	opts := Options{Period: "1y", Benchmark: "SPY", Simulate: true, HorizonDays: 21, NumPaths: 50, Seed: seeded(1)}

	_, ok := f.service.Cached(opts)
	assert.False(t, ok)

	r, err := f.service.Generate(context.Background(), opts)
	require.NoError(t, err)

	cached, ok := f.service.Cached(opts)
	require.True(t, ok)
	assert.Equal(t, r.ID, cached.ID)
	assert.Equal(t, r.XIRR != nil, cached.XIRR != nil)
	assert.InDelta(t, r.TWR, cached.TWR, 1e-12)

	other := opts
	other.Seed = seeded(2)
	_, ok = f.service.Cached(other)
	assert.False(t, ok)
}

func TestService_SimulationWithTooLittleHistory(t *testing.T) {
	f := newFixture(t, 2)
	opts := Options{Period: "1y", Simulate: true, HorizonDays: 21, NumPaths: 50, Seed: seeded(1)}

	r, err := f.service.Generate(context.Background(), opts)
	require.NoError(t, err)

	assert.Nil(t, r.Simulation)
	require.Contains(t, r.Unavailable, "simulation")
	assert.Contains(t, r.Unavailable["simulation"], "insufficient history")
}

func TestService_PriceHistoryFailureDegrades(t *testing.T) {
	f := newFixture(t, 60)
	service := newService(failingHistory{f.loader}, nil, f.log)

	r, err := service.Generate(context.Background(), Options{Period: "1y", Benchmark: "SPY", Simulate: true, HorizonDays: 21, NumPaths: 50})
	require.NoError(t, err)

	assert.Zero(t, r.Risk.Observations)
	assert.Zero(t, r.SharpeRatio)
	assert.True(t, hasWarning(r.Warnings, "upstream down"), "warnings: %v", r.Warnings)
	assert.Contains(t, r.Unavailable, "simulation")
	assert.Len(t, r.Positions, 2)
}

func TestService_LoadFailure(t *testing.T) {
	f := newFixture(t, 10)
	f.provider.Err = errors.New("quotes down")

	_, err := f.service.Generate(context.Background(), Options{Period: "1y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load portfolio")
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
