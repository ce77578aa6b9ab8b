// internal/admin/implementation_test.go
package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	counters DashboardStats
	recent   []RecentBorrow
	popular  []PopularBook
}

func (f *fakeStore) Counters(context.Context) (*DashboardStats, error) {
	stats := f.counters
	return &stats, nil
}

func (f *fakeStore) RecentBorrows(_ context.Context, limit int) ([]RecentBorrow, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeStore) PopularBooks(_ context.Context, limit int) ([]PopularBook, error) {
	if len(f.popular) > limit {
		return f.popular[:limit], nil
	}
	return f.popular, nil
}

func TestDashboardAggregates(t *testing.T) {
	store := &fakeStore{
		counters: DashboardStats{
			TotalBooks:    42,
			TotalPatrons:  7,
			ActiveLoans:   5,
			OverdueLoans:  2,
			FinesAssessed: 13,
		},
		recent:  []RecentBorrow{{LoanID: uuid.New(), BookTitle: "Dune"}},
		popular: []PopularBook{{BookID: uuid.New(), Title: "Dune", BorrowCount: 9}},
	}

	stats, err := NewService(store).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalBooks)
	assert.Equal(t, 2, stats.OverdueLoans)
	require.Len(t, stats.RecentBorrows, 1)
	require.Len(t, stats.PopularBooks, 1)
}

func TestDashboardEmptyListsAreNotNull(t *testing.T) {
	stats, err := NewService(&fakeStore{}).Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, stats.RecentBorrows)
	assert.NotNil(t, stats.PopularBooks)
}
