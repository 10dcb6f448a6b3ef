package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/craftcode/landing-backend/internal/contact/domain"
)

const (
	defaultTable   = "contact_submissions"
	defaultTimeout = 10 * time.Second
)

// SubmissionStore writes contact submissions straight into Postgres
type SubmissionStore struct {
	db      *sql.DB
	table   string
	timeout time.Duration
}

// NewSubmissionStore accepts a nil db; Insert then reports NotConfigured.
// Every insert is bounded by timeout, whatever the caller's context allows.
func NewSubmissionStore(db *sql.DB, table string, timeout time.Duration) *SubmissionStore {
	if table == "" {
		table = defaultTable
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SubmissionStore{db: db, table: table, timeout: timeout}
}

// Configured reports whether a database handle is present
func (s *SubmissionStore) Configured() bool {
	return s.db != nil
}

// Insert adds one row and returns it with the server-assigned id and created_at
func (s *SubmissionStore) Insert(ctx context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error) {
	if s.db == nil {
		return nil, domain.NewNotConfigured()
	}

	q := fmt.Sprintf(`
INSERT INTO %s (name, email, phone, project_description)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at;
`, pq.QuoteIdentifier(s.table))

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out := domain.StoredSubmission{SubmissionRecord: rec}
	var id string
	err := s.db.QueryRowContext(qctx, q, rec.Name, rec.Email, rec.Phone, rec.ProjectDescription).
		Scan(&id, &out.CreatedAt)
	if err != nil {
		if cerr := qctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			err = fmt.Errorf("%w: %w", cerr, err)
		}
		return nil, mapError(err)
	}
	out.ID = domain.RowID(id)
	return &out, nil
}

// mapError turns driver errors into a RemoteFailure with the server message
func mapError(err error) *domain.PersistenceError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		pe := domain.NewRemoteFailure(pqErr.Message, err)
		pe.Code = string(pqErr.Code)
		return pe
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		pe := domain.NewRemoteFailure(pgErr.Message, err)
		pe.Code = pgErr.Code
		return pe
	}

	return domain.NewRemoteFailure("", fmt.Errorf("insert submission: %w", err))
}
