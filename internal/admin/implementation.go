// internal/admin/implementation.go
package admin

import (
	"context"
	"fmt"
)

const (
	recentBorrowsLimit = 10
	popularBooksLimit  = 5
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new admin service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

// Dashboard aggregates the overview counters and lists.
func (s *service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.store.Counters(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard counters: %w", err)
	}

	stats.RecentBorrows, err = s.store.RecentBorrows(ctx, recentBorrowsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent borrows: %w", err)
	}
	if stats.RecentBorrows == nil {
		stats.RecentBorrows = []RecentBorrow{}
	}

	stats.PopularBooks, err = s.store.PopularBooks(ctx, popularBooksLimit)
	if err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	if stats.PopularBooks == nil {
		stats.PopularBooks = []PopularBook{}
	}

	return stats, nil
}
