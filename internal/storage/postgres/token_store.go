package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `mint, bonding_curve, associated_bonding_curve, name, symbol, uri, creator, tx_signature, slot, created_at`

// Insert adds a decoded token. Returns ErrDuplicateKey if the mint exists.
func (s *TokenStore) Insert(ctx context.Context, t *domain.TokenInfo) (err error) {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_token", time.Now(), &err)

	query := `
		INSERT INTO tokens (` + tokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		t.Mint,
		t.BondingCurve,
		t.AssociatedBondingCurve,
		t.Name,
		t.Symbol,
		t.URI,
		t.Creator,
		t.Signature,
		t.Slot,
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.TokenInfo, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE mint = $1`

	t, err := scanToken(s.pool.QueryRow(ctx, query, mint))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// GetByTimeRange retrieves tokens created within [start, end] (inclusive).
func (s *TokenStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TokenInfo, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC, mint ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get tokens by time range: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TokenInfo
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

// scanToken scans a single row into a TokenInfo.
func scanToken(row pgx.Row) (*domain.TokenInfo, error) {
	var t domain.TokenInfo
	var createdAt int64

	err := row.Scan(
		&t.Mint,
		&t.BondingCurve,
		&t.AssociatedBondingCurve,
		&t.Name,
		&t.Symbol,
		&t.URI,
		&t.Creator,
		&t.Signature,
		&t.Slot,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = time.UnixMilli(createdAt)
	return &t, nil
}
