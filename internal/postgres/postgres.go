// internal/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables and indexes if they do not exist. The
// partial unique index on loans backs the one-open-loan-per-book guarantee
// under concurrent borrows.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS patrons (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			salt TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			isbn TEXT UNIQUE,
			genre TEXT NOT NULL DEFAULT '',
			published_year INT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			cover_image TEXT NOT NULL DEFAULT '',
			total_copies INT NOT NULL CHECK (total_copies >= 1),
			available_copies INT NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
			shelf TEXT NOT NULL DEFAULT '',
			section TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS loans (
			id UUID PRIMARY KEY,
			patron_id UUID NOT NULL REFERENCES patrons(id),
			book_id UUID NOT NULL REFERENCES books(id),
			borrowed_at TIMESTAMPTZ NOT NULL,
			due_at TIMESTAMPTZ NOT NULL,
			returned_at TIMESTAMPTZ,
			renewed_count INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			fine_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			fine_paid BOOLEAN NOT NULL DEFAULT FALSE,
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS loans_one_open_per_book
			ON loans (patron_id, book_id) WHERE returned_at IS NULL`,

		`CREATE INDEX IF NOT EXISTS loans_patron_idx ON loans (patron_id, borrowed_at DESC)`,

		`CREATE INDEX IF NOT EXISTS loans_book_open_idx ON loans (book_id) WHERE returned_at IS NULL`,

		`CREATE TABLE IF NOT EXISTS wishlists (
			id UUID PRIMARY KEY,
			patron_id UUID NOT NULL REFERENCES patrons(id),
			book_id UUID NOT NULL REFERENCES books(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (patron_id, book_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
