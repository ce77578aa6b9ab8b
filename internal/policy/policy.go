// internal/policy/policy.go
package policy

import (
	"math"
	"time"
)

// Circulation rules. These are library-wide constants; per-tier or per-branch
// overrides would live in configuration, not here.
const (
	// LoanPeriodDays is how long a single loan (or renewal) runs.
	LoanPeriodDays = 14

	// MaxRenewals is how many times a loan may be renewed.
	MaxRenewals = 2

	// MaxActiveLoansPerPatron caps concurrent non-returned loans per patron.
	MaxActiveLoansPerPatron = 5

	// DailyFineRate is charged per started day a loan is overdue.
	DailyFineRate = 1.0
)

// ComputeDueDate returns the due date for a loan opened at borrowedAt.
func ComputeDueDate(borrowedAt time.Time) time.Time {
	return borrowedAt.AddDate(0, 0, LoanPeriodDays)
}

// ExtendDueDate returns the due date after one renewal. Renewals extend from
// the current due date, not from the renewal time.
func ExtendDueDate(dueAt time.Time) time.Time {
	return dueAt.AddDate(0, 0, LoanPeriodDays)
}

// ComputeFine returns the fine owed for a loan due at dueAt, as of asOf.
// A started day counts as a full day; returns 0 when asOf <= dueAt.
func ComputeFine(dueAt, asOf time.Time) float64 {
	if !asOf.After(dueAt) {
		return 0
	}
	daysOverdue := math.Ceil(asOf.Sub(dueAt).Hours() / 24)
	return daysOverdue * DailyFineRate
}

// CanRenew reports whether a loan with the given renewal count may be
// renewed again.
func CanRenew(renewedCount int) bool {
	return renewedCount < MaxRenewals
}
