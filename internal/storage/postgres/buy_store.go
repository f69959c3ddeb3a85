package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// BuyStore implements storage.BuyStore using PostgreSQL.
type BuyStore struct {
	pool *Pool
}

// NewBuyStore creates a new BuyStore.
func NewBuyStore(pool *Pool) *BuyStore {
	return &BuyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BuyStore = (*BuyStore)(nil)

const buyColumns = `attempt_id, session_id, mint, status, tx_signature, buyer_token_account, created_ata,
	amount_in, expected_tokens_out, min_tokens_out, slippage_bps,
	simulated, simulation_ok, simulation_error, units_consumed, error, built_at`

// Insert adds a build attempt. Returns ErrDuplicateKey if attempt_id or session_id exists.
func (s *BuyStore) Insert(ctx context.Context, a *domain.BuyAttempt) (err error) {
	if a == nil || a.AttemptID == "" || a.SessionID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_buy_attempt", time.Now(), &err)

	query := `
		INSERT INTO buy_attempts (` + buyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	// BIGINT columns are signed; amounts fit since lamports and token units stay below 2^63.
	_, err = s.pool.Exec(ctx, query,
		a.AttemptID,
		a.SessionID,
		a.Mint,
		string(a.Status),
		a.TxSignature,
		a.BuyerTokenAccount,
		a.CreatedATA,
		int64(a.AmountIn),
		int64(a.ExpectedTokensOut),
		int64(a.MinTokensOut),
		int64(a.SlippageBps),
		a.Simulated,
		a.SimulationOK,
		a.SimulationError,
		int64(a.UnitsConsumed),
		a.Error,
		a.BuiltAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert buy attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
func (s *BuyStore) GetByID(ctx context.Context, attemptID string) (*domain.BuyAttempt, error) {
	query := `SELECT ` + buyColumns + ` FROM buy_attempts WHERE attempt_id = $1`

	a, err := scanAttempt(s.pool.QueryRow(ctx, query, attemptID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get buy attempt by id: %w", err)
	}
	return a, nil
}

// GetBySessionID retrieves the attempt of a session. Returns ErrNotFound if not exists.
func (s *BuyStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.BuyAttempt, error) {
	query := `SELECT ` + buyColumns + ` FROM buy_attempts WHERE session_id = $1`

	a, err := scanAttempt(s.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get buy attempt by session: %w", err)
	}
	return a, nil
}

// GetByTimeRange retrieves attempts built within [start, end] (inclusive).
func (s *BuyStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.BuyAttempt, error) {
	query := `
		SELECT ` + buyColumns + `
		FROM buy_attempts
		WHERE built_at >= $1 AND built_at <= $2
		ORDER BY built_at ASC, attempt_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get buy attempts by time range: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.BuyAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan buy attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buy attempt rows: %w", err)
	}
	return attempts, nil
}

// scanAttempt scans a single row into a BuyAttempt.
func scanAttempt(row pgx.Row) (*domain.BuyAttempt, error) {
	var a domain.BuyAttempt
	var status string
	var amountIn, expectedOut, minOut, slippage, units int64

	err := row.Scan(
		&a.AttemptID,
		&a.SessionID,
		&a.Mint,
		&status,
		&a.TxSignature,
		&a.BuyerTokenAccount,
		&a.CreatedATA,
		&amountIn,
		&expectedOut,
		&minOut,
		&slippage,
		&a.Simulated,
		&a.SimulationOK,
		&a.SimulationError,
		&units,
		&a.Error,
		&a.BuiltAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = domain.BuyAttemptStatus(status)
	a.AmountIn = uint64(amountIn)
	a.ExpectedTokensOut = uint64(expectedOut)
	a.MinTokensOut = uint64(minOut)
	a.SlippageBps = uint64(slippage)
	a.UnitsConsumed = uint64(units)
	return &a, nil
}
