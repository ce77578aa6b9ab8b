// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the circulation service.
type Service interface {
	// OpenLoan borrows a book for a patron.
	OpenLoan(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error)

	// Renew extends a loan's due date by one loan period.
	Renew(ctx context.Context, patronID, loanID uuid.UUID) (*Loan, error)

	// CloseLoan returns a loan by id, finalizing any fine.
	CloseLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error)

	// ReturnBook closes the patron's active loan for the given book.
	ReturnBook(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error)

	// ActiveLoans lists the patron's non-returned loans with derived status.
	ActiveLoans(ctx context.Context, patronID uuid.UUID) ([]Loan, error)

	// History lists the patron's borrow records, newest first.
	History(ctx context.Context, patronID uuid.UUID, opts HistoryOptions) ([]Loan, int, error)

	// Stats summarizes the patron's borrowing activity.
	Stats(ctx context.Context, patronID uuid.UUID) (*PatronStats, error)
}
