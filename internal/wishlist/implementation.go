// internal/wishlist/implementation.go
package wishlist

import (
	"context"

	"github.com/google/uuid"
)

// service implements the Service interface.
type service struct {
	store Store
}

// NewService creates a new wishlist service instance.
func NewService(store Store) Service {
	return &service{store: store}
}

// List returns the patron's wishlist, newest first.
func (s *service) List(ctx context.Context, patronID uuid.UUID) ([]Item, error) {
	return s.store.ListByPatron(ctx, patronID)
}

// Add puts a book on the wishlist. Existence of the book, its active flag
// and the duplicate guard are enforced by the store in one statement.
func (s *service) Add(ctx context.Context, patronID, bookID uuid.UUID) (*Item, error) {
	item := &Item{
		ID:       uuid.New(),
		PatronID: patronID,
		BookID:   bookID,
	}
	if err := s.store.AddItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Remove takes a book off the wishlist.
func (s *service) Remove(ctx context.Context, patronID, bookID uuid.UUID) error {
	return s.store.RemoveItem(ctx, patronID, bookID)
}

// Contains reports whether the book is on the patron's wishlist.
func (s *service) Contains(ctx context.Context, patronID, bookID uuid.UUID) (bool, error) {
	return s.store.HasItem(ctx, patronID, bookID)
}
