// internal/catalog/domain.go
package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrDuplicateISBN  = errors.New("a book with this ISBN already exists")
	ErrHasActiveLoans = errors.New("book has active loans")
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("book was modified concurrently")
)

// isbnPattern accepts ISBN-10 (nine digits plus digit or X) and ISBN-13.
var isbnPattern = regexp.MustCompile(`^(?:\d{9}[\dX]|\d{13})$`)

// Book represents a title in the catalog together with its copy counts.
// available_copies is mutated only by the circulation service through the
// inventory ledger; books are deactivated, never deleted.
type Book struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Title           string         `json:"title" db:"title"`
	Author          string         `json:"author" db:"author"`
	ISBN            string         `json:"isbn,omitempty" db:"isbn"`
	Genre           string         `json:"genre,omitempty" db:"genre"`
	PublishedYear   int            `json:"published_year,omitempty" db:"published_year"`
	Description     string         `json:"description,omitempty" db:"description"`
	CoverImage      string         `json:"cover_image,omitempty" db:"cover_image"`
	TotalCopies     int            `json:"total_copies" db:"total_copies"`
	AvailableCopies int            `json:"available_copies" db:"available_copies"`
	Shelf           string         `json:"shelf,omitempty" db:"shelf"`
	Section         string         `json:"section,omitempty" db:"section"`
	Tags            pq.StringArray `json:"tags,omitempty" db:"tags"`
	IsActive        bool           `json:"is_active" db:"is_active"`
	Version         int            `json:"version" db:"version"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// BorrowedCopies is the number of copies currently out on loan.
func (b *Book) BorrowedCopies() int {
	return b.TotalCopies - b.AvailableCopies
}

// Validate checks the descriptive fields and copy counts of a book.
func (b *Book) Validate() error {
	switch {
	case b.Title == "" || len(b.Title) > 200:
		return fmt.Errorf("%w: title is required and must not exceed 200 characters", ErrValidation)
	case b.Author == "" || len(b.Author) > 100:
		return fmt.Errorf("%w: author is required and must not exceed 100 characters", ErrValidation)
	case b.ISBN != "" && !isbnPattern.MatchString(b.ISBN):
		return fmt.Errorf("%w: invalid ISBN", ErrValidation)
	case len(b.Genre) > 50:
		return fmt.Errorf("%w: genre must not exceed 50 characters", ErrValidation)
	case b.PublishedYear != 0 && (b.PublishedYear < 1000 || b.PublishedYear > time.Now().Year()+1):
		return fmt.Errorf("%w: published year must be between 1000 and next year", ErrValidation)
	case len(b.Description) > 2000:
		return fmt.Errorf("%w: description must not exceed 2000 characters", ErrValidation)
	case b.TotalCopies < 1:
		return fmt.Errorf("%w: total copies must be at least 1", ErrValidation)
	case b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies:
		return fmt.Errorf("%w: available copies must be between 0 and total copies", ErrValidation)
	}
	return nil
}

// ListOptions filters, sorts and paginates catalog listings.
type ListOptions struct {
	Query           string
	Genre           string
	PublishedYear   int
	SortBy          string
	SortOrder       string
	Page            int
	Limit           int
	IncludeInactive bool
}
