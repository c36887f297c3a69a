// Package historical persists daily closes per symbol in history.db.
package historical

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/sentinel-analytics/internal/domain"
	"github.com/rs/zerolog"
)

// PriceStore provides access to stored daily prices
type PriceStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceStore creates a new daily price store
func NewPriceStore(db *sql.DB, log zerolog.Logger) *PriceStore {
	return &PriceStore{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// Coverage describes the stored date span for a symbol
type Coverage struct {
	First time.Time
	Last  time.Time
	Count int
}

// Upsert writes bars for a symbol in a single transaction.
// Dates are stored as the Unix timestamp of the UTC day.
func (s *PriceStore) Upsert(symbol string, prices []domain.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, close, adj_close)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if p.Close <= 0 {
			continue
		}
		adj := sql.NullFloat64{Float64: p.AdjClose, Valid: p.AdjClose > 0}
		if _, err := stmt.Exec(symbol, dayUnix(p.Date), p.Close, adj); err != nil {
			return fmt.Errorf("failed to insert daily price for %s: %w", p.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Stored daily prices")

	return nil
}

// GetRange returns bars for a symbol on or after from, ordered by date ascending
func (s *PriceStore) GetRange(symbol string, from time.Time) ([]domain.DailyPrice, error) {
	rows, err := s.db.Query(`
		SELECT date, close, adj_close
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`, symbol, dayUnix(from))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// GetRecent returns the latest limit bars for a symbol, ordered by date descending
func (s *PriceStore) GetRecent(symbol string, limit int) ([]domain.DailyPrice, error) {
	if limit <= 0 {
		return []domain.DailyPrice{}, nil
	}

	rows, err := s.db.Query(`
		SELECT date, close, adj_close
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent prices: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// Latest returns the most recent bar, or nil when the symbol has none
func (s *PriceStore) Latest(symbol string) (*domain.DailyPrice, error) {
	prices, err := s.GetRecent(symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}
	return &prices[0], nil
}

// Coverage reports the first and last stored dates for a symbol.
// ok is false when nothing is stored.
func (s *PriceStore) Coverage(symbol string) (Coverage, bool, error) {
	var first, last sql.NullInt64
	var count int
	err := s.db.QueryRow(`
		SELECT MIN(date), MAX(date), COUNT(*)
		FROM daily_prices
		WHERE symbol = ?
	`, symbol).Scan(&first, &last, &count)
	if err != nil {
		return Coverage{}, false, fmt.Errorf("failed to check coverage for %s: %w", symbol, err)
	}
	if count == 0 || !first.Valid || !last.Valid {
		return Coverage{}, false, nil
	}

	return Coverage{
		First: time.Unix(first.Int64, 0).UTC(),
		Last:  time.Unix(last.Int64, 0).UTC(),
		Count: count,
	}, true, nil
}

// Symbols lists every symbol with stored prices
func (s *PriceStore) Symbols() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// DeleteBefore prunes bars older than cutoff and returns the number removed
func (s *PriceStore) DeleteBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM daily_prices WHERE date < ?", dayUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	return result.RowsAffected()
}

func scanPrices(rows *sql.Rows) ([]domain.DailyPrice, error) {
	var prices []domain.DailyPrice
	for rows.Next() {
		var p domain.DailyPrice
		var dateUnix int64
		var adj sql.NullFloat64

		if err := rows.Scan(&dateUnix, &p.Close, &adj); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		p.Date = time.Unix(dateUnix, 0).UTC()
		if adj.Valid {
			p.AdjClose = adj.Float64
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

func dayUnix(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}
