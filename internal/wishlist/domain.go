// internal/wishlist/domain.go
package wishlist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrAlreadyInWishlist = errors.New("book is already in the wishlist")
	ErrNotInWishlist     = errors.New("book is not in the wishlist")
)

// Item is a wishlist entry joined with the book it points at.
type Item struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatronID  uuid.UUID `json:"patron_id" db:"patron_id"`
	BookID    uuid.UUID `json:"book_id" db:"book_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	BookTitle       string `json:"book_title" db:"book_title"`
	BookAuthor      string `json:"book_author" db:"book_author"`
	CoverImage      string `json:"cover_image,omitempty" db:"cover_image"`
	AvailableCopies int    `json:"available_copies" db:"available_copies"`
}
