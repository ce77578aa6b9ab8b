// internal/admin/service.go
package admin

import "context"

// Service defines the interface for the admin dashboard.
type Service interface {
	// Dashboard aggregates catalog, membership and circulation counters.
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

// Store is the read-side collaborator for dashboard queries.
type Store interface {
	Counters(ctx context.Context) (*DashboardStats, error)
	RecentBorrows(ctx context.Context, limit int) ([]RecentBorrow, error)
	PopularBooks(ctx context.Context, limit int) ([]PopularBook, error)
}
