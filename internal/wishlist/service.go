// internal/wishlist/service.go
package wishlist

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the wishlist service.
type Service interface {
	// List returns the patron's wishlist, newest first.
	List(ctx context.Context, patronID uuid.UUID) ([]Item, error)

	// Add puts an active book on the patron's wishlist. Each (patron, book)
	// pair appears at most once.
	Add(ctx context.Context, patronID, bookID uuid.UUID) (*Item, error)

	// Remove takes a book off the wishlist.
	Remove(ctx context.Context, patronID, bookID uuid.UUID) error

	// Contains reports whether the book is on the patron's wishlist.
	Contains(ctx context.Context, patronID, bookID uuid.UUID) (bool, error)
}

// Store is the persistence collaborator for wishlist entries.
type Store interface {
	ListByPatron(ctx context.Context, patronID uuid.UUID) ([]Item, error)
	AddItem(ctx context.Context, item *Item) error
	RemoveItem(ctx context.Context, patronID, bookID uuid.UUID) error
	HasItem(ctx context.Context, patronID, bookID uuid.UUID) (bool, error)
}
