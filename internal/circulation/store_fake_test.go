// internal/circulation/store_fake_test.go
package circulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"libraflow/internal/inventory"
)

// fakeBook mirrors the ledger-relevant slice of a catalog record.
type fakeBook struct {
	total     int
	available int
	active    bool
}

// fakeStore is an in-memory Store with the same atomicity guarantees as the
// Postgres implementation: every compound mutation happens under one lock.
type fakeStore struct {
	mu    sync.Mutex
	books map[uuid.UUID]*fakeBook
	loans map[uuid.UUID]*Loan
	now   func() time.Time
}

func newFakeStore(now func() time.Time) *fakeStore {
	return &fakeStore{
		books: make(map[uuid.UUID]*fakeBook),
		loans: make(map[uuid.UUID]*Loan),
		now:   now,
	}
}

func (s *fakeStore) addBook(total, available int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.books[id] = &fakeBook{total: total, available: available, active: true}
	return id
}

func (s *fakeStore) availableCopies(bookID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[bookID].available
}

func (s *fakeStore) FindLoanByID(_ context.Context, id uuid.UUID) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loan, ok := s.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	cp := *loan
	return &cp, nil
}

func (s *fakeStore) FindActiveLoan(_ context.Context, patronID, bookID uuid.UUID) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loan := range s.loans {
		if loan.PatronID == patronID && loan.BookID == bookID && loan.ReturnedAt == nil {
			cp := *loan
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CountActiveLoans(_ context.Context, patronID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, loan := range s.loans {
		if loan.PatronID == patronID && loan.ReturnedAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CreateLoanReservingCopy(_ context.Context, loan *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[loan.BookID]
	if !ok || !book.active {
		return inventory.ErrBookNotFound
	}
	if book.available <= 0 {
		return inventory.ErrUnavailable
	}
	for _, other := range s.loans {
		if other.PatronID == loan.PatronID && other.BookID == loan.BookID && other.ReturnedAt == nil {
			return ErrAlreadyBorrowed
		}
	}

	book.available--
	cp := *loan
	s.loans[loan.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateLoan(_ context.Context, loan *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if stored.ReturnedAt != nil {
		return ErrAlreadyReturned
	}
	if stored.Version != loan.Version {
		return ErrConflict
	}

	cp := *loan
	cp.Version++
	s.loans[loan.ID] = &cp
	loan.Version++
	return nil
}

func (s *fakeStore) CloseLoanReleasingCopy(_ context.Context, loan *Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.loans[loan.ID]
	if !ok {
		return ErrLoanNotFound
	}
	if stored.ReturnedAt != nil {
		return ErrAlreadyReturned
	}
	if stored.Version != loan.Version {
		return ErrConflict
	}

	cp := *loan
	cp.Version++
	s.loans[loan.ID] = &cp
	loan.Version++

	if book, ok := s.books[loan.BookID]; ok {
		book.available = inventory.ClampAvailable(book.total, book.available+1)
	}
	return nil
}

func (s *fakeStore) ListLoansByPatron(_ context.Context, patronID uuid.UUID, opts HistoryOptions) ([]Loan, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch opts.Status {
	case "", statusFilterUnreturned, StatusReturned, StatusOverdue, StatusActive, StatusRenewed:
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatusFilter, opts.Status)
	}

	now := s.now()
	var matched []Loan
	for _, loan := range s.loans {
		if loan.PatronID != patronID {
			continue
		}
		switch opts.Status {
		case "":
		case statusFilterUnreturned:
			if loan.ReturnedAt != nil {
				continue
			}
		case StatusReturned:
			if loan.ReturnedAt == nil {
				continue
			}
		case StatusOverdue:
			if loan.ReturnedAt != nil || !now.After(loan.DueAt) {
				continue
			}
		case StatusActive, StatusRenewed:
			if loan.Status != opts.Status || loan.ReturnedAt != nil || now.After(loan.DueAt) {
				continue
			}
		}
		matched = append(matched, *loan)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].BorrowedAt.After(matched[j].BorrowedAt)
	})

	total := len(matched)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *fakeStore) PatronStats(_ context.Context, patronID uuid.UUID) (*PatronStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stats := &PatronStats{}
	for _, loan := range s.loans {
		if loan.PatronID != patronID {
			continue
		}
		stats.TotalBorrows++
		stats.TotalFines += loan.FineAmount
		switch {
		case loan.ReturnedAt != nil:
			stats.ReturnedBooks++
		case now.After(loan.DueAt):
			stats.OverdueBorrows++
		default:
			stats.ActiveBorrows++
		}
	}
	return stats, nil
}
