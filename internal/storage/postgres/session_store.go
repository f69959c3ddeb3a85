package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

const sessionColumns = `session_id, batch_id, mint, bonding_curve, status, market_cap_usd, updates, dropped, deadline_at, decided_at, created_at`

// Insert adds a terminal session. Returns ErrDuplicateKey if session_id exists.
func (s *SessionStore) Insert(ctx context.Context, o *domain.SessionOutcome) (err error) {
	if o == nil || o.SessionID == "" || !o.Status.Terminal() {
		return storage.ErrInvalidInput
	}
	defer observe("insert_session", time.Now(), &err)

	createdAt := o.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO session_outcomes (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.pool.Exec(ctx, query,
		o.SessionID,
		o.BatchID,
		o.Mint,
		o.BondingCurve,
		string(o.Status),
		o.MarketCapUSD,
		o.Updates,
		o.Dropped,
		o.DeadlineAt,
		o.DecidedAt,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session outcome: %w", err)
	}
	return nil
}

// GetByID retrieves an outcome by session ID. Returns ErrNotFound if not exists.
func (s *SessionStore) GetByID(ctx context.Context, sessionID string) (*domain.SessionOutcome, error) {
	query := `SELECT ` + sessionColumns + ` FROM session_outcomes WHERE session_id = $1`

	o, err := scanOutcome(s.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session outcome by id: %w", err)
	}
	return o, nil
}

// GetByBatchID retrieves all outcomes of a batch, ordered by decided_at ASC.
func (s *SessionStore) GetByBatchID(ctx context.Context, batchID string) ([]*domain.SessionOutcome, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM session_outcomes
		WHERE batch_id = $1
		ORDER BY decided_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("get session outcomes by batch: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// GetByTimeRange retrieves outcomes decided within [start, end] (inclusive).
func (s *SessionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SessionOutcome, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM session_outcomes
		WHERE decided_at >= $1 AND decided_at <= $2
		ORDER BY decided_at ASC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get session outcomes by time range: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// scanOutcome scans a single row into a SessionOutcome.
func scanOutcome(row pgx.Row) (*domain.SessionOutcome, error) {
	var o domain.SessionOutcome
	var status string

	err := row.Scan(
		&o.SessionID,
		&o.BatchID,
		&o.Mint,
		&o.BondingCurve,
		&status,
		&o.MarketCapUSD,
		&o.Updates,
		&o.Dropped,
		&o.DeadlineAt,
		&o.DecidedAt,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.SessionStatus(status)
	return &o, nil
}

// scanOutcomes scans multiple rows into a slice of SessionOutcome.
func scanOutcomes(rows pgx.Rows) ([]*domain.SessionOutcome, error) {
	var outcomes []*domain.SessionOutcome

	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session outcome rows: %w", err)
	}

	return outcomes, nil
}
