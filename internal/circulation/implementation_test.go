// internal/circulation/implementation_test.go
package circulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"libraflow/internal/inventory"
	"libraflow/internal/policy"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestService wires the state machine to an in-memory store with a
// controllable clock.
func newTestService() (*service, *fakeStore, *time.Time) {
	now := testNow
	clock := func() time.Time { return now }
	store := newFakeStore(clock)
	svc := NewService(store).(*service)
	svc.now = clock
	return svc, store, &now
}

func TestOpenLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active loan and reserves a copy", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(3, 3)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		assert.Equal(t, StatusActive, loan.Status)
		assert.Equal(t, testNow, loan.BorrowedAt)
		assert.Equal(t, testNow.AddDate(0, 0, policy.LoanPeriodDays), loan.DueAt)
		assert.Zero(t, loan.FineAmount)
		assert.Zero(t, loan.RenewedCount)
		assert.Equal(t, 2, store.availableCopies(bookID))
	})

	t.Run("fails when no copies are available", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)

		_, err := svc.OpenLoan(ctx, uuid.New(), bookID)
		require.NoError(t, err)

		_, err = svc.OpenLoan(ctx, uuid.New(), bookID)
		assert.ErrorIs(t, err, inventory.ErrUnavailable)
		assert.Equal(t, 0, store.availableCopies(bookID))
	})

	t.Run("fails when the patron already holds the book", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(5, 5)
		patronID := uuid.New()

		_, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		_, err = svc.OpenLoan(ctx, patronID, bookID)
		assert.ErrorIs(t, err, ErrAlreadyBorrowed)
		assert.Equal(t, 4, store.availableCopies(bookID))
	})

	t.Run("fails at the concurrent loan limit regardless of availability", func(t *testing.T) {
		svc, store, _ := newTestService()
		patronID := uuid.New()

		for i := 0; i < policy.MaxActiveLoansPerPatron; i++ {
			bookID := store.addBook(1, 1)
			_, err := svc.OpenLoan(ctx, patronID, bookID)
			require.NoError(t, err)
		}

		bookID := store.addBook(10, 10)
		_, err := svc.OpenLoan(ctx, patronID, bookID)
		assert.ErrorIs(t, err, ErrLimitExceeded)
		assert.Equal(t, 10, store.availableCopies(bookID))
	})

	t.Run("fails for a missing book", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.OpenLoan(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, inventory.ErrBookNotFound)
	})

	t.Run("at most one winner for the last copy under concurrency", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)

		const borrowers = 8
		errs := make(chan error, borrowers)
		var wg sync.WaitGroup
		for i := 0; i < borrowers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.OpenLoan(ctx, uuid.New(), bookID)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		wins := 0
		for err := range errs {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, inventory.ErrUnavailable)
			}
		}
		assert.Equal(t, 1, wins)
		assert.Equal(t, 0, store.availableCopies(bookID))
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("extends the due date from the current due date", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)
		originalDue := loan.DueAt

		renewed, err := svc.Renew(ctx, patronID, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, originalDue.AddDate(0, 0, policy.LoanPeriodDays), renewed.DueAt)
		assert.Equal(t, 1, renewed.RenewedCount)
		assert.Equal(t, StatusRenewed, renewed.Status)
		// Renewal never touches inventory.
		assert.Equal(t, 0, store.availableCopies(bookID))
	})

	t.Run("a renewed loan can be renewed again up to the cap", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		for i := 1; i <= policy.MaxRenewals; i++ {
			loan, err = svc.Renew(ctx, patronID, loan.ID)
			require.NoError(t, err)
			assert.Equal(t, i, loan.RenewedCount)
		}

		_, err = svc.Renew(ctx, patronID, loan.ID)
		assert.ErrorIs(t, err, ErrRenewalLimitExceeded)

		// The failed renewal left the loan unchanged.
		stored, err := store.FindLoanByID(ctx, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, policy.MaxRenewals, stored.RenewedCount)
		assert.Equal(t, loan.DueAt, stored.DueAt)
	})

	t.Run("rejects renewal of an overdue loan", func(t *testing.T) {
		svc, store, now := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		*now = testNow.AddDate(0, 0, policy.LoanPeriodDays+1)
		_, err = svc.Renew(ctx, patronID, loan.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("rejects renewal of a returned loan", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)
		_, err = svc.CloseLoan(ctx, loan.ID)
		require.NoError(t, err)

		_, err = svc.Renew(ctx, patronID, loan.ID)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("another patron's loan looks like a missing loan", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)

		loan, err := svc.OpenLoan(ctx, uuid.New(), bookID)
		require.NoError(t, err)

		_, err = svc.Renew(ctx, uuid.New(), loan.ID)
		assert.ErrorIs(t, err, ErrLoanNotFound)
	})
}

func TestCloseLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("on-time return carries no fine and restores availability", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(3, 3)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)
		assert.Equal(t, 2, store.availableCopies(bookID))

		closed, err := svc.CloseLoan(ctx, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusReturned, closed.Status)
		require.NotNil(t, closed.ReturnedAt)
		assert.Equal(t, testNow, *closed.ReturnedAt)
		assert.Zero(t, closed.FineAmount)
		assert.Equal(t, 3, store.availableCopies(bookID))
	})

	t.Run("overdue return freezes the accrued fine", func(t *testing.T) {
		svc, store, now := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		// Borrowed 20 days ago with a 14-day period: 6 days overdue.
		*now = testNow.AddDate(0, 0, 20)
		closed, err := svc.CloseLoan(ctx, loan.ID)
		require.NoError(t, err)
		assert.Equal(t, 6*policy.DailyFineRate, closed.FineAmount)
		assert.Equal(t, StatusReturned, closed.Status)
	})

	t.Run("second close is rejected and releases no extra copy", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(2, 2)
		patronID := uuid.New()

		loan, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		_, err = svc.CloseLoan(ctx, loan.ID)
		require.NoError(t, err)
		_, err = svc.CloseLoan(ctx, loan.ID)
		assert.ErrorIs(t, err, ErrAlreadyReturned)
		assert.Equal(t, 2, store.availableCopies(bookID))
	})

	t.Run("returning by book resolves the active loan", func(t *testing.T) {
		svc, store, _ := newTestService()
		bookID := store.addBook(1, 1)
		patronID := uuid.New()

		opened, err := svc.OpenLoan(ctx, patronID, bookID)
		require.NoError(t, err)

		closed, err := svc.ReturnBook(ctx, patronID, bookID)
		require.NoError(t, err)
		assert.Equal(t, opened.ID, closed.ID)

		_, err = svc.ReturnBook(ctx, patronID, bookID)
		assert.ErrorIs(t, err, ErrLoanNotFound)
	})
}

func TestActiveLoansDeriveStatus(t *testing.T) {
	ctx := context.Background()
	svc, store, now := newTestService()
	patronID := uuid.New()

	onTime := store.addBook(1, 1)
	overdue := store.addBook(1, 1)

	_, err := svc.OpenLoan(ctx, patronID, overdue)
	require.NoError(t, err)

	*now = testNow.AddDate(0, 0, policy.LoanPeriodDays+2)
	_, err = svc.OpenLoan(ctx, patronID, onTime)
	require.NoError(t, err)

	loans, err := svc.ActiveLoans(ctx, patronID)
	require.NoError(t, err)
	require.Len(t, loans, 2)

	byBook := map[uuid.UUID]Loan{}
	for _, l := range loans {
		byBook[l.BookID] = l
	}
	assert.Equal(t, StatusActive, byBook[onTime].Status)
	assert.Equal(t, StatusOverdue, byBook[overdue].Status)
	assert.Equal(t, 2*policy.DailyFineRate, byBook[overdue].FineAmount)
}

func TestHistoryRejectsUnknownStatusFilter(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.History(context.Background(), uuid.New(), HistoryOptions{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidStatusFilter)
}

func TestActiveLoansListsEveryOpenLoan(t *testing.T) {
	// Drift can leave more open loans than the policy allows; the listing
	// must still show them all rather than truncating at the cap.
	ctx := context.Background()
	svc, store, _ := newTestService()
	patronID := uuid.New()

	extra := policy.MaxActiveLoansPerPatron + 2
	for i := 0; i < extra; i++ {
		loan := &Loan{
			ID:         uuid.New(),
			PatronID:   patronID,
			BookID:     store.addBook(1, 1),
			BorrowedAt: testNow.Add(time.Duration(i) * time.Minute),
			DueAt:      testNow.AddDate(0, 0, policy.LoanPeriodDays),
			Status:     StatusActive,
			Version:    1,
		}
		require.NoError(t, store.CreateLoanReservingCopy(ctx, loan))
	}

	loans, err := svc.ActiveLoans(ctx, patronID)
	require.NoError(t, err)
	assert.Len(t, loans, extra)
}

func TestRenewCloseRaceIsSerialized(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	bookID := store.addBook(1, 1)
	patronID := uuid.New()

	loan, err := svc.OpenLoan(ctx, patronID, bookID)
	require.NoError(t, err)

	// A close that lands between a renewal's read and write must not be
	// overwritten: the renewal's stale version loses.
	stale, err := store.FindLoanByID(ctx, loan.ID)
	require.NoError(t, err)

	_, err = svc.CloseLoan(ctx, loan.ID)
	require.NoError(t, err)

	stale.DueAt = stale.DueAt.AddDate(0, 0, policy.LoanPeriodDays)
	stale.RenewedCount++
	stale.Status = StatusRenewed
	err = store.UpdateLoan(ctx, stale)
	assert.ErrorIs(t, err, ErrAlreadyReturned)

	// The returned loan was not resurrected.
	current, err := store.FindLoanByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.NotNil(t, current.ReturnedAt)
	assert.Equal(t, StatusReturned, current.Status)
}

// TestCirculationInvariants drives random borrow/renew/return traffic and
// checks the ledger and limit invariants after every step.
func TestCirculationInvariants(t *testing.T) {
	ctx := context.Background()

	rapid.Check(t, func(t *rapid.T) {
		svc, store, _ := newTestService()

		numBooks := rapid.IntRange(1, 4).Draw(t, "numBooks")
		books := make([]uuid.UUID, 0, numBooks)
		totals := make(map[uuid.UUID]int, numBooks)
		for i := 0; i < numBooks; i++ {
			total := rapid.IntRange(1, 3).Draw(t, "total")
			id := store.addBook(total, total)
			books = append(books, id)
			totals[id] = total
		}

		patrons := make([]uuid.UUID, rapid.IntRange(1, 3).Draw(t, "numPatrons"))
		for i := range patrons {
			patrons[i] = uuid.New()
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			patron := patrons[rapid.IntRange(0, len(patrons)-1).Draw(t, "patron")]
			book := books[rapid.IntRange(0, len(books)-1).Draw(t, "book")]

			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				_, _ = svc.OpenLoan(ctx, patron, book)
			case 1:
				_, _ = svc.ReturnBook(ctx, patron, book)
			case 2:
				if loan, _ := store.FindActiveLoan(ctx, patron, book); loan != nil {
					_, _ = svc.Renew(ctx, patron, loan.ID)
				}
			}

			for id, total := range totals {
				available := store.availableCopies(id)
				if available < 0 || available > total {
					t.Fatalf("copy invariant violated: book %s available=%d total=%d", id, available, total)
				}
			}
			for _, p := range patrons {
				count, err := store.CountActiveLoans(ctx, p)
				if err != nil {
					t.Fatalf("count active loans: %v", err)
				}
				if count > policy.MaxActiveLoansPerPatron {
					t.Fatalf("loan limit violated: patron %s holds %d loans", p, count)
				}
			}
		}
	})
}
