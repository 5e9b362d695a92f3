// Package watchlist stores per-user symbol lists and serves them with live
// quotes attached.
package watchlist

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Schema creates the watchlist table.
const Schema = `
CREATE TABLE IF NOT EXISTS watchlist (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	symbol     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (user_id, symbol)
);
CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist(user_id);
`

// Entry is one watched symbol for one user.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository provides access to watchlist entries
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "watchlist_repository").Logger(),
	}
}

// Add inserts a symbol for a user. Adding an already-watched symbol is a
// no-op that returns the existing entry.
func (r *Repository) Add(userID, symbol string) (*Entry, error) {
	if existing, err := r.get(userID, symbol); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    symbol,
		CreatedAt: time.Now(),
	}
	_, err := r.db.Exec(`
		INSERT INTO watchlist (id, user_id, symbol, created_at) VALUES (?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Symbol, entry.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to add watchlist entry: %w", err)
	}
	return entry, nil
}

// Remove deletes a symbol from a user's watchlist.
func (r *Repository) Remove(userID, symbol string) error {
	_, err := r.db.Exec(`DELETE FROM watchlist WHERE user_id = ? AND symbol = ?`, userID, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist entry: %w", err)
	}
	return nil
}

// List returns a user's entries ordered by insertion time.
func (r *Repository) List(userID string) ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, symbol, created_at
		FROM watchlist WHERE user_id = ? ORDER BY created_at, symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &e.Symbol, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllSymbols returns the distinct symbols watched by any user, used by the
// nightly history refresh.
func (r *Repository) AllSymbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watched symbols: %w", err)
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

func (r *Repository) get(userID, symbol string) (*Entry, error) {
	var e Entry
	var createdAt int64
	err := r.db.QueryRow(`
		SELECT id, user_id, symbol, created_at
		FROM watchlist WHERE user_id = ? AND symbol = ?
	`, userID, symbol).Scan(&e.ID, &e.UserID, &e.Symbol, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist entry: %w", err)
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}
