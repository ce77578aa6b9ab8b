// internal/catalog/domain_test.go
package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validBook() Book {
	return Book{
		Title:           "The Go Programming Language",
		Author:          "Alan Donovan",
		ISBN:            "9780134190440",
		Genre:           "Programming",
		PublishedYear:   2015,
		TotalCopies:     3,
		AvailableCopies: 3,
	}
}

func TestBookValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Book)
		wantErr bool
	}{
		{"valid", func(b *Book) {}, false},
		{"missing title", func(b *Book) { b.Title = "" }, true},
		{"title too long", func(b *Book) { b.Title = strings.Repeat("x", 201) }, true},
		{"missing author", func(b *Book) { b.Author = "" }, true},
		{"author too long", func(b *Book) { b.Author = strings.Repeat("x", 101) }, true},
		{"isbn optional", func(b *Book) { b.ISBN = "" }, false},
		{"isbn-10", func(b *Book) { b.ISBN = "080442957X" }, false},
		{"isbn-13", func(b *Book) { b.ISBN = "9783161484100" }, false},
		{"isbn wrong length", func(b *Book) { b.ISBN = "12345" }, true},
		{"isbn letters", func(b *Book) { b.ISBN = "97831614841AB" }, true},
		{"isbn-10 X not last", func(b *Book) { b.ISBN = "08044X9571" }, true},
		{"genre too long", func(b *Book) { b.Genre = strings.Repeat("x", 51) }, true},
		{"year too early", func(b *Book) { b.PublishedYear = 999 }, true},
		{"year next year ok", func(b *Book) { b.PublishedYear = time.Now().Year() + 1 }, false},
		{"year too late", func(b *Book) { b.PublishedYear = time.Now().Year() + 2 }, true},
		{"year unset ok", func(b *Book) { b.PublishedYear = 0 }, false},
		{"description too long", func(b *Book) { b.Description = strings.Repeat("x", 2001) }, true},
		{"zero total copies", func(b *Book) { b.TotalCopies = 0 }, true},
		{"negative available", func(b *Book) { b.AvailableCopies = -1 }, true},
		{"available above total", func(b *Book) { b.AvailableCopies = 4 }, true},
		{"zero available ok", func(b *Book) { b.AvailableCopies = 0 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			book := validBook()
			tc.mutate(&book)
			err := book.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBorrowedCopies(t *testing.T) {
	book := Book{TotalCopies: 5, AvailableCopies: 2}
	assert.Equal(t, 3, book.BorrowedCopies())
}
