// internal/circulation/store.go
package circulation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrAlreadyBorrowed      = errors.New("patron already has this book borrowed")
	ErrLimitExceeded        = errors.New("maximum concurrent loans reached")
	ErrAlreadyReturned      = errors.New("loan already returned")
	ErrInvalidState         = errors.New("loan cannot be renewed in its current state")
	ErrRenewalLimitExceeded = errors.New("maximum renewals exceeded")
	ErrConflict             = errors.New("loan was modified concurrently")
	ErrInvalidStatusFilter  = errors.New("invalid status filter")
)

// Store is the persistence collaborator for loan records. Implementations must
// make CreateLoanReservingCopy and CloseLoanReleasingCopy atomic: the loan
// mutation and the copy-count adjustment commit together or not at all.
// UpdateLoan and CloseLoanReleasingCopy check the loan's Version and fail with
// ErrConflict when a concurrent writer got there first.
type Store interface {
	FindLoanByID(ctx context.Context, id uuid.UUID) (*Loan, error)

	// FindActiveLoan returns the patron's non-returned loan for the book,
	// or nil when there is none.
	FindActiveLoan(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error)

	CountActiveLoans(ctx context.Context, patronID uuid.UUID) (int, error)

	// CreateLoanReservingCopy reserves a copy of loan.BookID and inserts the
	// loan record in one commit. Fails with inventory.ErrUnavailable,
	// inventory.ErrBookNotFound, or ErrAlreadyBorrowed when a concurrent
	// borrow of the same book by the same patron won the race.
	CreateLoanReservingCopy(ctx context.Context, loan *Loan) error

	// UpdateLoan persists a renewal. On success the loan's Version is bumped.
	UpdateLoan(ctx context.Context, loan *Loan) error

	// CloseLoanReleasingCopy persists the closed loan and releases its copy in
	// one commit. Fails with ErrAlreadyReturned when the stored record is
	// already closed and ErrConflict when the version check fails.
	CloseLoanReleasingCopy(ctx context.Context, loan *Loan) error

	ListLoansByPatron(ctx context.Context, patronID uuid.UUID, opts HistoryOptions) ([]Loan, int, error)

	PatronStats(ctx context.Context, patronID uuid.UUID) (*PatronStats, error)
}
