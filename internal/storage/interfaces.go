package storage

import (
	"context"

	"pump-sniper/internal/domain"
)

// TokenStore provides access to tokens storage.
type TokenStore interface {
	// Insert adds a decoded token. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, t *domain.TokenInfo) error

	// GetByMint retrieves a token by mint. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.TokenInfo, error)

	// GetByTimeRange retrieves tokens created within [start, end] (Unix ms, inclusive),
	// ordered by created_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TokenInfo, error)
}

// SessionStore provides access to session_outcomes storage.
type SessionStore interface {
	// Insert adds a terminal session. Returns ErrDuplicateKey if session_id exists.
	Insert(ctx context.Context, o *domain.SessionOutcome) error

	// GetByID retrieves an outcome by session ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, sessionID string) (*domain.SessionOutcome, error)

	// GetByBatchID retrieves all outcomes of a batch, ordered by decided_at ASC.
	GetByBatchID(ctx context.Context, batchID string) ([]*domain.SessionOutcome, error)

	// GetByTimeRange retrieves outcomes decided within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SessionOutcome, error)
}

// BuyStore provides access to buy_attempts storage.
type BuyStore interface {
	// Insert adds a build attempt. Returns ErrDuplicateKey if attempt_id or session_id exists.
	Insert(ctx context.Context, a *domain.BuyAttempt) error

	// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, attemptID string) (*domain.BuyAttempt, error)

	// GetBySessionID retrieves the attempt of a session. Returns ErrNotFound if not exists.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.BuyAttempt, error)

	// GetByTimeRange retrieves attempts built within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.BuyAttempt, error)
}

// CurveObservationStore provides access to curve_observations storage.
type CurveObservationStore interface {
	// InsertBulk adds multiple observations. Fails entire batch on duplicate
	// (session_id, observed_at, slot).
	InsertBulk(ctx context.Context, obs []*domain.CurveObservation) error

	// GetBySessionID retrieves all observations of a session, ordered by observed_at ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.CurveObservation, error)

	// GetByTimeRange retrieves observations within [start, end] (inclusive) across sessions.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CurveObservation, error)
}

// Journal groups the stores written by the pipeline.
type Journal struct {
	Tokens       TokenStore
	Sessions     SessionStore
	Buys         BuyStore
	Observations CurveObservationStore
}
