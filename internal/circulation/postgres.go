// internal/circulation/postgres.go
package circulation

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libraflow/internal/inventory"
)

// statusFilterUnreturned selects every loan that has not been returned,
// regardless of whether it is currently within or past its due window.
const statusFilterUnreturned = "unreturned"

var dialect = goqu.Dialect("postgres")

// PostgresStore persists loans in PostgreSQL. Loan writes use optimistic
// version checks; the paired copy-count mutations run in the same transaction
// through the inventory ledger.
type PostgresStore struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a loan store backed by the given database.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("libraflow/circulation"),
	}
}

const loanColumns = `id, patron_id, book_id, borrowed_at, due_at, returned_at,
	renewed_count, status, fine_amount, fine_paid, version, created_at, updated_at`

// FindLoanByID retrieves a loan record.
func (s *PostgresStore) FindLoanByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	var loan Loan
	err := s.db.GetContext(ctx, &loan, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find loan: %w", err)
	}
	return &loan, nil
}

// FindActiveLoan returns the patron's non-returned loan for the book, or nil.
func (s *PostgresStore) FindActiveLoan(ctx context.Context, patronID, bookID uuid.UUID) (*Loan, error) {
	var loan Loan
	err := s.db.GetContext(ctx, &loan, `
		SELECT `+loanColumns+`
		FROM loans
		WHERE patron_id = $1 AND book_id = $2 AND returned_at IS NULL
	`, patronID, bookID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active loan: %w", err)
	}
	return &loan, nil
}

// CountActiveLoans counts the patron's non-returned loans.
func (s *PostgresStore) CountActiveLoans(ctx context.Context, patronID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM loans WHERE patron_id = $1 AND returned_at IS NULL
	`, patronID)
	if err != nil {
		return 0, fmt.Errorf("count active loans: %w", err)
	}
	return count, nil
}

// CreateLoanReservingCopy reserves a copy and inserts the loan record in a
// single transaction.
func (s *PostgresStore) CreateLoanReservingCopy(ctx context.Context, loan *Loan) error {
	ctx, span := s.tracer.Start(ctx, "circulation.open_loan",
		trace.WithAttributes(
			attribute.String("loan.id", loan.ID.String()),
			attribute.String("book.id", loan.BookID.String()),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	available, err := inventory.ReserveCopy(ctx, tx, loan.BookID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("book.available", available))

	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, patron_id, book_id, borrowed_at, due_at, renewed_count, status, fine_amount, fine_paid, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, loan.ID, loan.PatronID, loan.BookID, loan.BorrowedAt, loan.DueAt,
		loan.RenewedCount, loan.Status, loan.FineAmount, loan.FinePaid, loan.Version)
	if err != nil {
		// The partial unique index on (patron_id, book_id) WHERE returned_at
		// IS NULL catches a concurrent borrow of the same book.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyBorrowed
		}
		return fmt.Errorf("insert loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateLoan persists a renewal with an optimistic version check.
func (s *PostgresStore) UpdateLoan(ctx context.Context, loan *Loan) error {
	ctx, span := s.tracer.Start(ctx, "circulation.update_loan",
		trace.WithAttributes(
			attribute.String("loan.id", loan.ID.String()),
			attribute.Int("loan.version", loan.Version),
		),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE loans
		SET due_at = $1, renewed_count = $2, status = $3, fine_amount = $4,
		    fine_paid = $5, version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7 AND returned_at IS NULL
	`, loan.DueAt, loan.RenewedCount, loan.Status, loan.FineAmount,
		loan.FinePaid, loan.ID, loan.Version)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if rows == 0 {
		return s.missedWriteError(ctx, loan.ID)
	}

	loan.Version++
	return nil
}

// CloseLoanReleasingCopy persists the closed loan and releases its copy in a
// single transaction.
func (s *PostgresStore) CloseLoanReleasingCopy(ctx context.Context, loan *Loan) error {
	ctx, span := s.tracer.Start(ctx, "circulation.close_loan",
		trace.WithAttributes(
			attribute.String("loan.id", loan.ID.String()),
			attribute.String("book.id", loan.BookID.String()),
			attribute.Float64("loan.fine", loan.FineAmount),
		),
	)
	defer span.End()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET returned_at = $1, status = $2, fine_amount = $3, version = version + 1, updated_at = NOW()
		WHERE id = $4 AND version = $5 AND returned_at IS NULL
	`, loan.ReturnedAt, loan.Status, loan.FineAmount, loan.ID, loan.Version)
	if err != nil {
		return fmt.Errorf("close loan: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close loan: %w", err)
	}
	if rows == 0 {
		return s.missedWriteError(ctx, loan.ID)
	}

	if _, err := inventory.ReleaseCopy(ctx, tx, loan.BookID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	loan.Version++
	return nil
}

// missedWriteError decides why a version-checked write touched no rows: the
// loan is gone, already returned, or a concurrent writer bumped the version.
func (s *PostgresStore) missedWriteError(ctx context.Context, id uuid.UUID) error {
	var returnedAt sql.NullTime
	err := s.db.QueryRowxContext(ctx, `SELECT returned_at FROM loans WHERE id = $1`, id).Scan(&returnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLoanNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect loan: %w", err)
	}
	if returnedAt.Valid {
		return ErrAlreadyReturned
	}
	return ErrConflict
}

// ListLoansByPatron lists a patron's loans, newest first. The status filter
// accepts the stored statuses, "overdue" (derived from the due date), and
// "unreturned" for every open loan.
func (s *PostgresStore) ListLoansByPatron(ctx context.Context, patronID uuid.UUID, opts HistoryOptions) ([]Loan, int, error) {
	where := []goqu.Expression{goqu.Ex{"patron_id": patronID}}
	switch opts.Status {
	case "":
	case statusFilterUnreturned:
		where = append(where, goqu.C("returned_at").IsNull())
	case StatusReturned:
		where = append(where, goqu.C("returned_at").IsNotNull())
	case StatusOverdue:
		where = append(where, goqu.C("returned_at").IsNull(), goqu.C("due_at").Lt(goqu.L("NOW()")))
	case StatusActive, StatusRenewed:
		where = append(where,
			goqu.C("status").Eq(opts.Status),
			goqu.C("returned_at").IsNull(),
			goqu.C("due_at").Gte(goqu.L("NOW()")))
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatusFilter, opts.Status)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}

	query, args, err := dialect.From("loans").
		Select(goqu.L(loanColumns)).
		Where(where...).
		Order(goqu.C("borrowed_at").Desc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build history query: %w", err)
	}

	var loans []Loan
	if err := s.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}

	countQuery, countArgs, err := dialect.From("loans").
		Select(goqu.COUNT("*")).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	return loans, total, nil
}

// PatronStats aggregates a patron's borrowing activity in one query.
func (s *PostgresStore) PatronStats(ctx context.Context, patronID uuid.UUID) (*PatronStats, error) {
	var stats PatronStats
	err := s.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_borrows,
			COUNT(*) FILTER (WHERE returned_at IS NULL AND due_at >= NOW()) AS active_borrows,
			COUNT(*) FILTER (WHERE returned_at IS NULL AND due_at < NOW()) AS overdue_borrows,
			COUNT(*) FILTER (WHERE returned_at IS NOT NULL) AS returned_books,
			COALESCE(SUM(fine_amount), 0) AS total_fines
		FROM loans
		WHERE patron_id = $1
	`, patronID)
	if err != nil {
		return nil, fmt.Errorf("patron stats: %w", err)
	}
	return &stats, nil
}
