// internal/catalog/implementation.go
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new catalog service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

// List returns active books matching the options.
func (s *service) List(ctx context.Context, opts ListOptions) ([]Book, int, error) {
	opts.IncludeInactive = false
	normalizeListOptions(&opts)
	return s.store.ListBooks(ctx, opts)
}

// AdminList returns books for the admin console.
func (s *service) AdminList(ctx context.Context, opts ListOptions) ([]Book, int, error) {
	normalizeListOptions(&opts)
	return s.store.ListBooks(ctx, opts)
}

// Get returns an active book by id.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.store.FindBookByID(ctx, id, false)
}

// Create adds a new book to the catalog.
func (s *service) Create(ctx context.Context, book *Book) (*Book, error) {
	book.ID = uuid.New()
	if book.AvailableCopies == 0 {
		book.AvailableCopies = book.TotalCopies
	}
	book.IsActive = true
	book.Version = 1

	if err := book.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Update replaces a book's descriptive fields and total copies. The stored
// available count is owned by the ledger: it is never written directly here,
// only clamped when the total shrinks.
func (s *service) Update(ctx context.Context, book *Book) (*Book, error) {
	current, err := s.store.FindBookByID(ctx, book.ID, true)
	if err != nil {
		return nil, err
	}

	book.AvailableCopies = current.AvailableCopies
	if book.AvailableCopies > book.TotalCopies {
		book.AvailableCopies = book.TotalCopies
	}
	book.IsActive = current.IsActive
	book.Version = current.Version

	if err := book.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return s.store.FindBookByID(ctx, book.ID, true)
}

// Deactivate soft-deletes a book with no active loans.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeactivateBook(ctx, id); err != nil {
		return fmt.Errorf("deactivate book: %w", err)
	}
	return nil
}

func normalizeListOptions(opts *ListOptions) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 50 {
		opts.Limit = 12
	}
	switch opts.SortBy {
	case "title", "author", "published_year", "created_at":
	default:
		opts.SortBy = "title"
	}
	if opts.SortOrder != "desc" {
		opts.SortOrder = "asc"
	}
}
