package ledger

import (
	"testing"

	testingpkg "github.com/aristath/sentinel-analytics/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *TransactionRepository {
	db := testingpkg.NewTestDB(t, "ledger")
	return NewTransactionRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	created, err := repo.CreateBatch(aaplScenario())
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, tx := range created {
		assert.NotEmpty(t, tx.ID)
	}

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 3)

	assert.Equal(t, created[0].ID, all[0].ID)
	assert.Equal(t, KindBuy, all[0].Kind)
	assert.True(t, all[0].Quantity.Equal(d("100")))
	assert.True(t, all[0].Fees.Equal(d("10")))
	assert.True(t, all[2].Price.Equal(d("200")))
	assert.True(t, all[2].Date.Equal(day("2023-12-01")))

	// stored transactions must rebuild the same ledger
	l := newTestLedger()
	_, err = l.Apply(all)
	require.NoError(t, err)
	require.Len(t, l.RealizedTrades(), 1)
	assert.True(t, l.RealizedTrades()[0].PnL.Equal(d("1237.5")))
}

func TestTransactionRepository_NormalizesSymbolAndFilters(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Create(trade(KindBuy, " msft ", "2", "300", "1", "2023-01-01"))
	require.NoError(t, err)
	_, err = repo.Create(trade(KindBuy, "AAPL", "1", "150", "0", "2023-01-02"))
	require.NoError(t, err)

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	msft, err := repo.GetBySymbol("msft")
	require.NoError(t, err)
	require.Len(t, msft, 1)
	assert.Equal(t, "MSFT", msft[0].Symbol)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTransactionRepository_RejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.CreateBatch([]Transaction{
		trade(KindBuy, "AAPL", "1", "150", "0", "2023-01-02"),
		trade(KindSell, "AAPL", "0", "150", "0", "2023-01-03"),
	})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	n, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "batch is all or nothing")
}

func TestTransactionRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)

	tx, err := repo.Create(trade(KindBuy, "AAPL", "1", "150", "0", "2023-01-02"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(tx.ID))
	err = repo.Delete(tx.ID)
	assert.True(t, IsNotFound(err))
}
