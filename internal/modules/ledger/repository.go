package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionRepositoryInterface is the transaction source used by services
// and handlers
type TransactionRepositoryInterface interface {
	Create(tx Transaction) (Transaction, error)
	CreateBatch(txs []Transaction) ([]Transaction, error)
	GetAll() ([]Transaction, error)
	GetBySymbol(symbol string) ([]Transaction, error)
	Delete(id string) error
	Count() (int, error)
}

// transactionsColumns matches the scan order in scanTransaction
const transactionsColumns = `id, symbol, kind, quantity, price, fees, executed_at`

// TransactionRepository persists transactions in ledger.db.
// Decimals are stored as TEXT so no precision is lost.
type TransactionRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(ledgerDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "transaction").Logger(),
	}
}

// Create validates and inserts a transaction, assigning an ID when missing
func (r *TransactionRepository) Create(tx Transaction) (Transaction, error) {
	created, err := r.CreateBatch([]Transaction{tx})
	if err != nil {
		return Transaction{}, err
	}
	return created[0], nil
}

// CreateBatch inserts all transactions atomically
func (r *TransactionRepository) CreateBatch(txs []Transaction) ([]Transaction, error) {
	if len(txs) == 0 {
		return []Transaction{}, nil
	}
	txs = append([]Transaction(nil), txs...)
	for i := range txs {
		txs[i].Symbol = strings.ToUpper(strings.TrimSpace(txs[i].Symbol))
		if err := txs[i].Validate(); err != nil {
			return nil, fmt.Errorf("failed to create transaction %d: %w", i, err)
		}
		if txs[i].ID == "" {
			txs[i].ID = uuid.New().String()
		}
	}

	dbTx, err := r.ledgerDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	stmt, err := dbTx.Prepare(`
		INSERT INTO transactions
		(id, symbol, kind, quantity, price, fees, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, tx := range txs {
		_, err := stmt.Exec(
			tx.ID,
			tx.Symbol,
			string(tx.Kind),
			tx.Quantity.String(),
			tx.Price.String(),
			tx.Fees.String(),
			tx.Date.UTC().Unix(),
			now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transactions: %w", err)
	}

	r.log.Info().Int("count", len(txs)).Msg("Transactions recorded")
	return txs, nil
}

// GetAll returns every transaction in booking order
func (r *TransactionRepository) GetAll() ([]Transaction, error) {
	rows, err := r.ledgerDB.Query("SELECT " + transactionsColumns + " FROM transactions ORDER BY executed_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// GetBySymbol returns the transactions of one symbol in booking order
func (r *TransactionRepository) GetBySymbol(symbol string) ([]Transaction, error) {
	rows, err := r.ledgerDB.Query(
		"SELECT "+transactionsColumns+" FROM transactions WHERE symbol = ? ORDER BY executed_at ASC, rowid ASC",
		strings.ToUpper(strings.TrimSpace(symbol)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions for %s: %w", symbol, err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// Delete removes one transaction by ID
func (r *TransactionRepository) Delete(id string) error {
	res, err := r.ledgerDB.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Count returns the number of stored transactions
func (r *TransactionRepository) Count() (int, error) {
	var n int
	if err := r.ledgerDB.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// Symbols returns every distinct traded symbol, sorted
func (r *TransactionRepository) Symbols() ([]string, error) {
	rows, err := r.ledgerDB.Query("SELECT DISTINCT symbol FROM transactions ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	txs := []Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}

func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var (
		tx                    Transaction
		kind                  string
		quantity, price, fees string
		executedAt            int64
	)

	if err := rows.Scan(&tx.ID, &tx.Symbol, &kind, &quantity, &price, &fees, &executedAt); err != nil {
		return Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	var err error
	tx.Kind = Kind(kind)
	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return Transaction{}, fmt.Errorf("failed to parse quantity of %s: %w", tx.ID, err)
	}
	if tx.Price, err = decimal.NewFromString(price); err != nil {
		return Transaction{}, fmt.Errorf("failed to parse price of %s: %w", tx.ID, err)
	}
	if tx.Fees, err = decimal.NewFromString(fees); err != nil {
		return Transaction{}, fmt.Errorf("failed to parse fees of %s: %w", tx.ID, err)
	}
	tx.Date = time.Unix(executedAt, 0).UTC()

	return tx, nil
}

// IsNotFound reports whether err came from a lookup of a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
