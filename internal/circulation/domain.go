// internal/circulation/domain.go
package circulation

import (
	"time"

	"github.com/google/uuid"
)

// Loan lifecycle states. Only active, renewed and returned are ever stored;
// overdue is derived from the due date at read time.
const (
	StatusActive   = "active"
	StatusRenewed  = "renewed"
	StatusOverdue  = "overdue"
	StatusReturned = "returned"
)

// Loan is a borrow record linking one patron to one book copy for a bounded
// period. Patron and book references are immutable after creation.
type Loan struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	PatronID     uuid.UUID  `json:"patron_id" db:"patron_id"`
	BookID       uuid.UUID  `json:"book_id" db:"book_id"`
	BorrowedAt   time.Time  `json:"borrowed_at" db:"borrowed_at"`
	DueAt        time.Time  `json:"due_at" db:"due_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	RenewedCount int        `json:"renewed_count" db:"renewed_count"`
	Status       string     `json:"status" db:"status"`
	FineAmount   float64    `json:"fine_amount" db:"fine_amount"`
	FinePaid     bool       `json:"fine_paid" db:"fine_paid"`
	Version      int        `json:"version" db:"version"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// DeriveStatus computes a loan's lifecycle state from its timestamps rather
// than trusting the stored value: a set return date wins, an elapsed due date
// makes it overdue, otherwise the stored active/renewed value stands.
func DeriveStatus(l *Loan, now time.Time) string {
	if l.ReturnedAt != nil {
		return StatusReturned
	}
	if now.After(l.DueAt) {
		return StatusOverdue
	}
	return l.Status
}

// IsReturned reports whether the loan has been closed.
func (l *Loan) IsReturned() bool {
	return l.ReturnedAt != nil
}

// PatronStats summarizes a patron's borrowing activity.
type PatronStats struct {
	TotalBorrows   int     `json:"total_borrows" db:"total_borrows"`
	ActiveBorrows  int     `json:"active_borrows" db:"active_borrows"`
	OverdueBorrows int     `json:"overdue_borrows" db:"overdue_borrows"`
	ReturnedBooks  int     `json:"returned_books" db:"returned_books"`
	TotalFines     float64 `json:"total_fines" db:"total_fines"`
}

// HistoryOptions filters and paginates a patron's borrow history.
type HistoryOptions struct {
	Status string
	Page   int
	Limit  int
}
