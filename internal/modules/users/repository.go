// Package users implements account registration and credential verification
// backed by the users database.
package users

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Schema creates the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	salt          TEXT NOT NULL,
	created_at    INTEGER NOT NULL
);
`

// User is a stored account. PasswordHash and Salt never leave this package.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}

// Repository provides access to stored accounts
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new users repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "users_repository").Logger(),
	}
}

// Create stores a new account.
func (r *Repository) Create(u User) error {
	_, err := r.db.Exec(`
		INSERT INTO users (id, username, password_hash, salt, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.PasswordHash, u.Salt, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername returns the account for username, or nil when absent.
func (r *Repository) GetByUsername(username string) (*User, error) {
	var u User
	var createdAt int64
	err := r.db.QueryRow(`
		SELECT id, username, password_hash, salt, created_at
		FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Salt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}
