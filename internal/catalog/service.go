// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the catalog service.
type Service interface {
	// List returns active books matching the options, with the total match
	// count for pagination. A non-empty Query searches title, author,
	// description and tags.
	List(ctx context.Context, opts ListOptions) ([]Book, int, error)

	// Get returns an active book by id.
	Get(ctx context.Context, id uuid.UUID) (*Book, error)

	// AdminList returns books for the admin console, optionally including
	// deactivated ones.
	AdminList(ctx context.Context, opts ListOptions) ([]Book, int, error)

	// Create adds a new book. Available copies default to total copies.
	Create(ctx context.Context, book *Book) (*Book, error)

	// Update replaces a book's descriptive fields and total copies. Available
	// copies are clamped down when the total shrinks below them.
	Update(ctx context.Context, book *Book) (*Book, error)

	// Deactivate soft-deletes a book. Fails while the book has active loans.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// Store is the persistence collaborator for books.
type Store interface {
	ListBooks(ctx context.Context, opts ListOptions) ([]Book, int, error)
	FindBookByID(ctx context.Context, id uuid.UUID, includeInactive bool) (*Book, error)
	CreateBook(ctx context.Context, book *Book) error

	// UpdateBook persists descriptive fields and the new total through the
	// inventory ledger in one commit, with an optimistic version check.
	UpdateBook(ctx context.Context, book *Book) error

	// DeactivateBook soft-deletes; fails with ErrHasActiveLoans while any
	// non-returned loan references the book.
	DeactivateBook(ctx context.Context, id uuid.UUID) error
}
