// internal/admin/domain.go
package admin

import (
	"time"

	"github.com/google/uuid"
)

// DashboardStats is the admin console overview.
type DashboardStats struct {
	TotalBooks    int     `json:"total_books" db:"total_books"`
	TotalPatrons  int     `json:"total_patrons" db:"total_patrons"`
	ActiveLoans   int     `json:"active_loans" db:"active_loans"`
	OverdueLoans  int     `json:"overdue_loans" db:"overdue_loans"`
	FinesAssessed float64 `json:"fines_assessed" db:"fines_assessed"`

	RecentBorrows []RecentBorrow `json:"recent_borrows"`
	PopularBooks  []PopularBook  `json:"popular_books"`
}

// RecentBorrow is a recently opened loan with book and patron names.
type RecentBorrow struct {
	LoanID     uuid.UUID `json:"loan_id" db:"loan_id"`
	BookID     uuid.UUID `json:"book_id" db:"book_id"`
	BookTitle  string    `json:"book_title" db:"book_title"`
	PatronID   uuid.UUID `json:"patron_id" db:"patron_id"`
	PatronName string    `json:"patron_name" db:"patron_name"`
	BorrowedAt time.Time `json:"borrowed_at" db:"borrowed_at"`
	DueAt      time.Time `json:"due_at" db:"due_at"`
}

// PopularBook is a title ranked by all-time borrow count.
type PopularBook struct {
	BookID      uuid.UUID `json:"book_id" db:"book_id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	BorrowCount int       `json:"borrow_count" db:"borrow_count"`
}
