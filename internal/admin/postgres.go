// internal/admin/postgres.go
package admin

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore runs the dashboard read queries.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a dashboard store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Counters collects the scalar overview numbers in one round trip. Overdue
// is derived from due dates, never from the stored status.
func (s *PostgresStore) Counters(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM books WHERE is_active)   AS total_books,
			(SELECT COUNT(*) FROM patrons WHERE is_active) AS total_patrons,
			(SELECT COUNT(*) FROM loans WHERE returned_at IS NULL)                    AS active_loans,
			(SELECT COUNT(*) FROM loans WHERE returned_at IS NULL AND due_at < NOW()) AS overdue_loans,
			(SELECT COALESCE(SUM(fine_amount), 0) FROM loans)                         AS fines_assessed
	`)
	if err != nil {
		return nil, fmt.Errorf("dashboard counters: %w", err)
	}
	return &stats, nil
}

// RecentBorrows lists the most recently opened loans.
func (s *PostgresStore) RecentBorrows(ctx context.Context, limit int) ([]RecentBorrow, error) {
	var borrows []RecentBorrow
	err := s.db.SelectContext(ctx, &borrows, `
		SELECT l.id AS loan_id, l.book_id, b.title AS book_title,
		       l.patron_id, p.name AS patron_name,
		       l.borrowed_at, l.due_at
		FROM loans l
		JOIN books b ON b.id = l.book_id
		JOIN patrons p ON p.id = l.patron_id
		ORDER BY l.borrowed_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent borrows: %w", err)
	}
	return borrows, nil
}

// PopularBooks ranks titles by all-time borrow count.
func (s *PostgresStore) PopularBooks(ctx context.Context, limit int) ([]PopularBook, error) {
	var books []PopularBook
	err := s.db.SelectContext(ctx, &books, `
		SELECT b.id AS book_id, b.title, b.author, COUNT(l.id) AS borrow_count
		FROM books b
		JOIN loans l ON l.book_id = b.id
		GROUP BY b.id, b.title, b.author
		ORDER BY borrow_count DESC, b.title ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	return books, nil
}
