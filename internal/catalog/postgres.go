// internal/catalog/postgres.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"libraflow/internal/inventory"
)

var dialect = goqu.Dialect("postgres")

// PostgresStore persists books in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a book store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// bookColumns normalizes nullable columns so they scan into plain strings.
var bookColumns = []interface{}{
	goqu.C("id"), goqu.C("title"), goqu.C("author"),
	goqu.L("COALESCE(isbn, '')").As("isbn"),
	goqu.C("genre"),
	goqu.C("published_year"),
	goqu.C("description"), goqu.C("cover_image"),
	goqu.C("total_copies"), goqu.C("available_copies"),
	goqu.C("shelf"), goqu.C("section"), goqu.C("tags"),
	goqu.C("is_active"), goqu.C("version"),
	goqu.C("created_at"), goqu.C("updated_at"),
}

// ListBooks runs the catalog listing/search query. Filters, sorting and
// pagination are composed dynamically.
func (s *PostgresStore) ListBooks(ctx context.Context, opts ListOptions) ([]Book, int, error) {
	var where []goqu.Expression
	if !opts.IncludeInactive {
		where = append(where, goqu.C("is_active").IsTrue())
	}
	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		where = append(where, goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
			goqu.C("description").ILike(pattern),
			goqu.L("EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE ?)", pattern),
		))
	}
	if opts.Genre != "" {
		where = append(where, goqu.C("genre").ILike(opts.Genre))
	}
	if opts.PublishedYear != 0 {
		where = append(where, goqu.C("published_year").Eq(opts.PublishedYear))
	}

	order := goqu.C(opts.SortBy).Asc()
	if opts.SortOrder == "desc" {
		order = goqu.C(opts.SortBy).Desc()
	}

	query, args, err := dialect.From("books").
		Select(bookColumns...).
		Where(where...).
		Order(order).
		Limit(uint(opts.Limit)).
		Offset(uint((opts.Page - 1) * opts.Limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	var books []Book
	if err := s.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	countQuery, countArgs, err := dialect.From("books").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	return books, total, nil
}

// FindBookByID retrieves a book, optionally including deactivated ones.
func (s *PostgresStore) FindBookByID(ctx context.Context, id uuid.UUID, includeInactive bool) (*Book, error) {
	ds := dialect.From("books").Select(bookColumns...).Where(goqu.C("id").Eq(id.String()))
	if !includeInactive {
		ds = ds.Where(goqu.C("is_active").IsTrue())
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}

	var book Book
	err = s.db.GetContext(ctx, &book, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &book, nil
}

// CreateBook inserts a new book.
func (s *PostgresStore) CreateBook(ctx context.Context, book *Book) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, genre, published_year, description,
			cover_image, total_copies, available_copies, shelf, section, tags, is_active, version)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, book.ID, book.Title, book.Author, book.ISBN, book.Genre, book.PublishedYear,
		book.Description, book.CoverImage, book.TotalCopies, book.AvailableCopies,
		book.Shelf, book.Section, book.Tags, book.IsActive, book.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateISBN
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// UpdateBook persists descriptive fields and routes the copy-count change
// through the inventory ledger, all in one transaction.
func (s *PostgresStore) UpdateBook(ctx context.Context, book *Book) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET title = $1, author = $2, isbn = NULLIF($3, ''), genre = $4, published_year = $5,
		    description = $6, cover_image = $7, shelf = $8, section = $9, tags = $10,
		    version = version + 1, updated_at = NOW()
		WHERE id = $11 AND version = $12
	`, book.Title, book.Author, book.ISBN, book.Genre, book.PublishedYear,
		book.Description, book.CoverImage, book.Shelf, book.Section, book.Tags,
		book.ID, book.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateISBN
		}
		return fmt.Errorf("update book: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, book.ID); err != nil {
			return fmt.Errorf("inspect book: %w", err)
		}
		if !exists {
			return ErrBookNotFound
		}
		return ErrConflict
	}

	if _, err := inventory.SetTotalCopies(ctx, tx, book.ID, book.TotalCopies); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	book.Version++
	return nil
}

// DeactivateBook soft-deletes a book unless it still has open loans. The
// existence check and the write are one statement so a borrow that lands in
// between cannot slip through.
func (s *PostgresStore) DeactivateBook(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE books
		SET is_active = FALSE, version = version + 1, updated_at = NOW()
		WHERE id = $1
		AND NOT EXISTS (SELECT 1 FROM loans WHERE book_id = $1 AND returned_at IS NULL)
	`, id)
	if err != nil {
		return fmt.Errorf("deactivate book: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate book: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("inspect book: %w", err)
		}
		if !exists {
			return ErrBookNotFound
		}
		return ErrHasActiveLoans
	}
	return nil
}
