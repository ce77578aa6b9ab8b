// internal/inventory/ledger.go
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrBookNotFound     = errors.New("book not found or inactive")
	ErrUnavailable      = errors.New("no copies available")
	ErrInvalidCopyCount = errors.New("total copies must be at least 1")
)

// The ledger owns the copy-count invariant 0 <= available_copies <= total_copies.
// All mutations are single conditional UPDATEs so that concurrent borrowers of
// the last copy cannot both win. Callers needing a copy-count change and a loan
// change in one commit pass their open transaction as q.

// ReserveCopy decrements a book's available count by one and returns the new
// count. It fails with ErrUnavailable when no copy is free and with
// ErrBookNotFound when the book is missing or inactive.
func ReserveCopy(ctx context.Context, q sqlx.ExtContext, bookID uuid.UUID) (int, error) {
	var available int
	err := q.QueryRowxContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = NOW()
		WHERE id = $1 AND is_active AND available_copies > 0
		RETURNING available_copies
	`, bookID).Scan(&available)

	if err == nil {
		return available, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reserve copy: %w", err)
	}

	// Distinguish a missing/inactive book from one that is simply out of copies.
	var active bool
	err = q.QueryRowxContext(ctx, `SELECT is_active FROM books WHERE id = $1`, bookID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reserve copy: %w", err)
	}
	return 0, ErrUnavailable
}

// ReleaseCopy increments a book's available count by one, clamped so it never
// exceeds the total. The clamp repairs drift from prior corruption instead of
// compounding it.
func ReleaseCopy(ctx context.Context, q sqlx.ExtContext, bookID uuid.UUID) (int, error) {
	var available int
	err := q.QueryRowxContext(ctx, `
		UPDATE books
		SET available_copies = LEAST(available_copies + 1, total_copies), updated_at = NOW()
		WHERE id = $1
		RETURNING available_copies
	`, bookID).Scan(&available)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("release copy: %w", err)
	}
	return available, nil
}

// SetTotalCopies changes a book's total count. When the new total is below the
// current available count, available is clamped down to the new total.
func SetTotalCopies(ctx context.Context, q sqlx.ExtContext, bookID uuid.UUID, newTotal int) (int, error) {
	if newTotal < 1 {
		return 0, ErrInvalidCopyCount
	}

	var available int
	err := q.QueryRowxContext(ctx, `
		UPDATE books
		SET total_copies = $2, available_copies = LEAST(available_copies, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING available_copies
	`, bookID, newTotal).Scan(&available)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrBookNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("set total copies: %w", err)
	}
	return available, nil
}

// ClampAvailable applies the copy-count invariant to a proposed available
// count: never negative, never above total.
func ClampAvailable(total, available int) int {
	if available > total {
		return total
	}
	if available < 0 {
		return 0
	}
	return available
}
