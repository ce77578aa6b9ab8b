// internal/membership/postgres.go
package membership

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
)

var dialect = goqu.Dialect("postgres")

const patronColumns = `id, name, email, password_hash, salt, role, is_active, version, created_at, updated_at`

// PostgresStore persists patrons in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a patron store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FindPatronByID retrieves a patron by id.
func (s *PostgresStore) FindPatronByID(ctx context.Context, id uuid.UUID) (*Patron, error) {
	var patron Patron
	err := s.db.GetContext(ctx, &patron,
		`SELECT `+patronColumns+` FROM patrons WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatronNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find patron: %w", err)
	}
	return &patron, nil
}

// FindPatronByEmail retrieves a patron by email; nil when no account has it.
func (s *PostgresStore) FindPatronByEmail(ctx context.Context, email string) (*Patron, error) {
	var patron Patron
	err := s.db.GetContext(ctx, &patron,
		`SELECT `+patronColumns+` FROM patrons WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find patron by email: %w", err)
	}
	return &patron, nil
}

// CreatePatron inserts a new account. A concurrent registration with the same
// email surfaces as ErrDuplicateEmail via the unique constraint.
func (s *PostgresStore) CreatePatron(ctx context.Context, patron *Patron) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patrons (id, name, email, password_hash, salt, role, is_active, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, patron.ID, patron.Name, patron.Email, patron.PasswordHash, patron.Salt,
		patron.Role, patron.IsActive, patron.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create patron: %w", err)
	}
	return nil
}

// UpdatePatron writes the mutable fields with an optimistic version check.
func (s *PostgresStore) UpdatePatron(ctx context.Context, patron *Patron) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE patrons
		SET name = $1, email = $2, role = $3, is_active = $4,
		    version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
	`, patron.Name, patron.Email, patron.Role, patron.IsActive,
		patron.ID, patron.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update patron: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patron: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM patrons WHERE id = $1)`, patron.ID); err != nil {
			return fmt.Errorf("inspect patron: %w", err)
		}
		if !exists {
			return ErrPatronNotFound
		}
		return ErrConflict
	}
	patron.Version++
	return nil
}

// ListPatrons runs the admin listing query.
func (s *PostgresStore) ListPatrons(ctx context.Context, opts ListOptions) ([]Patron, int, error) {
	var where []goqu.Expression
	if opts.Query != "" {
		pattern := "%" + opts.Query + "%"
		where = append(where, goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("email").ILike(pattern),
		))
	}
	if opts.Role != "" {
		where = append(where, goqu.C("role").Eq(opts.Role))
	}

	query, args, err := dialect.From("patrons").
		Select(goqu.C("id"), goqu.C("name"), goqu.C("email"),
			goqu.C("password_hash"), goqu.C("salt"),
			goqu.C("role"), goqu.C("is_active"), goqu.C("version"),
			goqu.C("created_at"), goqu.C("updated_at")).
		Where(where...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(opts.Limit)).
		Offset(uint((opts.Page - 1) * opts.Limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build patron list query: %w", err)
	}

	var patrons []Patron
	if err := s.db.SelectContext(ctx, &patrons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patrons: %w", err)
	}

	countQuery, countArgs, err := dialect.From("patrons").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build patron count query: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count patrons: %w", err)
	}

	return patrons, total, nil
}

// CountActiveBorrows counts the patron's non-returned loans.
func (s *PostgresStore) CountActiveBorrows(ctx context.Context, patronID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM loans WHERE patron_id = $1 AND returned_at IS NULL`, patronID)
	if err != nil {
		return 0, fmt.Errorf("count active borrows: %w", err)
	}
	return count, nil
}
