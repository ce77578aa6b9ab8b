// internal/wishlist/postgres.go
package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore persists wishlist entries in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a wishlist store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByPatron returns the patron's wishlist joined with book details,
// newest first.
func (s *PostgresStore) ListByPatron(ctx context.Context, patronID uuid.UUID) ([]Item, error) {
	var items []Item
	err := s.db.SelectContext(ctx, &items, `
		SELECT w.id, w.patron_id, w.book_id, w.created_at,
		       b.title AS book_title, b.author AS book_author,
		       b.cover_image, b.available_copies
		FROM wishlists w
		JOIN books b ON b.id = w.book_id
		WHERE w.patron_id = $1
		ORDER BY w.created_at DESC
	`, patronID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}

// AddItem inserts an entry. The book must exist and be active; the unique
// (patron_id, book_id) constraint backs the duplicate guard under races.
func (s *PostgresStore) AddItem(ctx context.Context, item *Item) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO wishlists (id, patron_id, book_id)
		SELECT $1, $2, id FROM books WHERE id = $3 AND is_active
	`, item.ID, item.PatronID, item.BookID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyInWishlist
		}
		return fmt.Errorf("add wishlist item: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	if rows == 0 {
		return ErrBookNotFound
	}

	err = s.db.GetContext(ctx, item, `
		SELECT w.id, w.patron_id, w.book_id, w.created_at,
		       b.title AS book_title, b.author AS book_author,
		       b.cover_image, b.available_copies
		FROM wishlists w
		JOIN books b ON b.id = w.book_id
		WHERE w.id = $1
	`, item.ID)
	if err != nil {
		return fmt.Errorf("read back wishlist item: %w", err)
	}
	return nil
}

// RemoveItem deletes an entry.
func (s *PostgresStore) RemoveItem(ctx context.Context, patronID, bookID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlists WHERE patron_id = $1 AND book_id = $2`, patronID, bookID)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if rows == 0 {
		return ErrNotInWishlist
	}
	return nil
}

// HasItem reports whether an entry exists.
func (s *PostgresStore) HasItem(ctx context.Context, patronID, bookID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM wishlists WHERE patron_id = $1 AND book_id = $2)`,
		patronID, bookID)
	if err != nil {
		return false, fmt.Errorf("check wishlist item: %w", err)
	}
	return exists, nil
}
