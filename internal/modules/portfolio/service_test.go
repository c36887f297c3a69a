package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel-analytics/internal/modules/ledger"
	testingpkg "github.com/aristath/sentinel-analytics/internal/testing"
)

// MockTransactionRepository is a mock transaction repository for testing
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(tx ledger.Transaction) (ledger.Transaction, error) {
	args := m.Called(tx)
	return args.Get(0).(ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CreateBatch(txs []ledger.Transaction) ([]ledger.Transaction, error) {
	args := m.Called(txs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetAll() ([]ledger.Transaction, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetBySymbol(symbol string) ([]ledger.Transaction, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockTransactionRepository) Count() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func buy(symbol string, qty, price int64, date time.Time) ledger.Transaction {
	return ledger.Transaction{
		Symbol:   symbol,
		Kind:     ledger.KindBuy,
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewFromInt(price),
		Date:     date,
	}
}

func TestPortfolioService_Load(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := new(MockTransactionRepository)
	repo.On("GetAll").Return([]ledger.Transaction{
		buy("AAA", 10, 100, start),
		buy("BBB", 30, 10, start),
		buy("NOP", 5, 1, start),
	}, nil)

	prices := testingpkg.NewStaticPriceProvider(start, map[string][]float64{
		"AAA": {100, 150},
		"BBB": {10, 25},
	})

	snap, err := NewPortfolioService(repo, prices, log).Load(context.Background())
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, []string{"AAA", "BBB", "NOP"}, snap.Symbols())
	assert.Equal(t, []string{"NOP"}, snap.MissingPrices)

	v, ok := snap.MarketValue("AAA")
	require.True(t, ok)
	assert.InDelta(t, 1500, v, 1e-9)
	_, ok = snap.MarketValue("NOP")
	assert.False(t, ok)

	assert.InDelta(t, 2250, snap.TotalMarketValue(), 1e-9)
	weights := snap.Weights()
	assert.Len(t, weights, 2)
	assert.InDelta(t, 1500.0/2250.0, weights["AAA"], 1e-12)
	assert.InDelta(t, 750.0/2250.0, weights["BBB"], 1e-12)
}

func TestPortfolioService_LoadErrors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		repo.On("GetAll").Return(nil, errors.New("disk gone"))

		_, err := NewPortfolioService(repo, testingpkg.NewStaticPriceProvider(start, nil), log).Load(context.Background())
		assert.ErrorContains(t, err, "failed to get transactions")
	})

	t.Run("price failure", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		repo.On("GetAll").Return([]ledger.Transaction{buy("AAA", 1, 1, start)}, nil)
		prices := testingpkg.NewStaticPriceProvider(start, nil)
		prices.Err = errors.New("offline")

		_, err := NewPortfolioService(repo, prices, log).Load(context.Background())
		assert.ErrorContains(t, err, "failed to get current prices")
	})

	t.Run("empty portfolio needs no prices", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		repo.On("GetAll").Return([]ledger.Transaction{}, nil)
		prices := testingpkg.NewStaticPriceProvider(start, nil)
		prices.Err = errors.New("offline")

		snap, err := NewPortfolioService(repo, prices, log).Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, snap.Positions)
		assert.Empty(t, snap.Weights())
	})
}

func TestPortfolioService_History(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := testingpkg.NewStaticPriceProvider(start, map[string][]float64{
		"AAA": {1, 2, 3},
		"SPY": {4, 5, 6},
	})

	table, err := NewPortfolioService(new(MockTransactionRepository), prices, log).
		History(context.Background(), []string{"AAA", "ZZZ"}, "SPY", "1y")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "SPY"}, table.Symbols())
}
