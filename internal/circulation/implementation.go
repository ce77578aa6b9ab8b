// internal/circulation/implementation.go
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"libraflow/internal/policy"
)

// service implements the Service interface.
type service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new circulation service instance.
func NewService(store Store) Service {
	return &service{
		store: store,
		now:   time.Now,
	}
}

// OpenLoan borrows a book for a patron. Eligibility checks run first; the copy
// reservation and the loan insert then commit as one unit in the store.
func (s *service) OpenLoan(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error) {
	existing, err := s.store.FindActiveLoan(ctx, patronID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check existing loan: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyBorrowed
	}

	count, err := s.store.CountActiveLoans(ctx, patronID)
	if err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	if count >= policy.MaxActiveLoansPerPatron {
		return nil, ErrLimitExceeded
	}

	now := s.now().UTC()
	loan := &Loan{
		ID:         uuid.New(),
		PatronID:   patronID,
		BookID:     bookID,
		BorrowedAt: now,
		DueAt:      policy.ComputeDueDate(now),
		Status:     StatusActive,
		Version:    1,
	}

	if err := s.store.CreateLoanReservingCopy(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// Renew extends the due date by one loan period. Renewal is only permitted
// while the loan is still within its due window; an overdue or returned loan
// cannot be renewed.
func (s *service) Renew(ctx context.Context, patronID, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.store.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	// A patron can only renew their own loans.
	if loan.PatronID != patronID {
		return nil, ErrLoanNotFound
	}

	now := s.now().UTC()
	switch DeriveStatus(loan, now) {
	case StatusReturned, StatusOverdue:
		return nil, ErrInvalidState
	}
	if !policy.CanRenew(loan.RenewedCount) {
		return nil, ErrRenewalLimitExceeded
	}

	loan.DueAt = policy.ExtendDueDate(loan.DueAt)
	loan.RenewedCount++
	loan.Status = StatusRenewed

	if err := s.store.UpdateLoan(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// CloseLoan returns a loan. If the loan is past due the fine is computed and
// frozen on the record; the book's copy is released in the same commit.
func (s *service) CloseLoan(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	loan, err := s.store.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsReturned() {
		return nil, ErrAlreadyReturned
	}

	now := s.now().UTC()
	loan.ReturnedAt = &now
	if now.After(loan.DueAt) {
		loan.FineAmount = policy.ComputeFine(loan.DueAt, now)
	}
	loan.Status = StatusReturned

	if err := s.store.CloseLoanReleasingCopy(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// ReturnBook closes the patron's active loan for the given book.
func (s *service) ReturnBook(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error) {
	loan, err := s.store.FindActiveLoan(ctx, patronID, bookID)
	if err != nil {
		return nil, fmt.Errorf("find active loan: %w", err)
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	return s.CloseLoan(ctx, loan.ID)
}

// activeLoansLimit is deliberately far above the policy cap so the listing
// still shows everything if drift ever leaves extra loans open.
const activeLoansLimit = 100

// ActiveLoans lists the patron's non-returned loans with derived status and
// the fine accrued so far. The accrued fine is a preview; it is only frozen
// onto the record when the loan closes.
func (s *service) ActiveLoans(ctx context.Context, patronID uuid.UUID) ([]Loan, error) {
	loans, _, err := s.store.ListLoansByPatron(ctx, patronID, HistoryOptions{Status: statusFilterUnreturned, Limit: activeLoansLimit})
	if err != nil {
		return nil, err
	}
	s.applyDerivedState(loans)
	return loans, nil
}

// History lists the patron's borrow records, newest first.
func (s *service) History(ctx context.Context, patronID uuid.UUID, opts HistoryOptions) ([]Loan, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 50 {
		opts.Limit = 10
	}

	loans, total, err := s.store.ListLoansByPatron(ctx, patronID, opts)
	if err != nil {
		return nil, 0, err
	}
	s.applyDerivedState(loans)
	return loans, total, nil
}

// Stats summarizes the patron's borrowing activity.
func (s *service) Stats(ctx context.Context, patronID uuid.UUID) (*PatronStats, error) {
	return s.store.PatronStats(ctx, patronID)
}

func (s *service) applyDerivedState(loans []Loan) {
	now := s.now().UTC()
	for i := range loans {
		loans[i].Status = DeriveStatus(&loans[i], now)
		if loans[i].Status == StatusOverdue {
			loans[i].FineAmount = policy.ComputeFine(loans[i].DueAt, now)
		}
	}
}
