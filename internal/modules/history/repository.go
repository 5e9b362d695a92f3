package history

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Schema creates the daily price cache table.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_prices (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   REAL,
	high   REAL,
	low    REAL,
	close  REAL NOT NULL,
	volume INTEGER,
	PRIMARY KEY (symbol, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_prices_symbol_date ON daily_prices(symbol, date);
`

// Repository provides access to cached daily price data
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "history_repository").Logger(),
	}
}

// UpsertPrices stores daily bars for a symbol, replacing rows that already
// exist for the same date. Runs in one transaction so a failed refresh never
// leaves a half-written range.
func (r *Repository) UpsertPrices(symbol string, prices []DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		var volume interface{}
		if p.Volume != nil {
			volume = *p.Volume
		}
		if _, err := stmt.Exec(symbol, p.Date, p.Open, p.High, p.Low, p.Close, volume); err != nil {
			return fmt.Errorf("failed to upsert price %s %s: %w", symbol, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	r.log.Debug().Str("symbol", symbol).Int("rows", len(prices)).Msg("Upserted daily prices")
	return nil
}

// GetDailyPrices fetches up to limit most recent bars for a symbol, returned
// in ascending date order.
func (r *Repository) GetDailyPrices(symbol string, limit int) ([]DailyPrice, error) {
	rows, err := r.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM (
			SELECT date, open, high, low, close, volume
			FROM daily_prices
			WHERE symbol = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		var volume sql.NullInt64
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		if volume.Valid {
			p.Volume = &volume.Int64
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}
	return prices, nil
}

// LatestDate returns the most recent cached date for a symbol, or "" when the
// symbol has no cached bars.
func (r *Repository) LatestDate(symbol string) (string, error) {
	var date sql.NullString
	err := r.db.QueryRow(`SELECT MAX(date) FROM daily_prices WHERE symbol = ?`, symbol).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("failed to query latest date: %w", err)
	}
	if !date.Valid {
		return "", nil
	}
	return date.String, nil
}

// Symbols returns every symbol with cached bars.
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol`)
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

// DeleteSymbol removes all cached bars for a symbol.
func (r *Repository) DeleteSymbol(symbol string) error {
	_, err := r.db.Exec(`DELETE FROM daily_prices WHERE symbol = ?`, symbol)
	return err
}
