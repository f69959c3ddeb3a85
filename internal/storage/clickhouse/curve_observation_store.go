package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/storage"
)

// CurveObservationStore implements storage.CurveObservationStore using ClickHouse.
type CurveObservationStore struct {
	conn *Conn
}

// NewCurveObservationStore creates a new CurveObservationStore.
func NewCurveObservationStore(conn *Conn) *CurveObservationStore {
	return &CurveObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CurveObservationStore = (*CurveObservationStore)(nil)

const observationColumns = `session_id, mint, observed_at, slot,
	virtual_sol_reserves, virtual_token_reserves, real_sol_reserves,
	complete, price_usd, market_cap_usd, eligible`

// InsertBulk adds multiple observations. Fails entire batch on duplicate
// (session_id, observed_at, slot).
func (s *CurveObservationStore) InsertBulk(ctx context.Context, obs []*domain.CurveObservation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "insert_curve_observations", time.Since(start).Seconds(), err)
	}(time.Now())

	// Check for intra-batch duplicates
	type key struct {
		sessionID  string
		observedAt int64
		slot       int64
	}
	seen := make(map[key]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.SessionID == "" {
			return storage.ErrInvalidInput
		}
		k := key{o.SessionID, o.ObservedAt, o.Slot}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// MergeTree does not enforce uniqueness; check existing rows explicitly
	for _, o := range obs {
		exists, err := s.exists(ctx, o.SessionID, o.ObservedAt, o.Slot)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO curve_observations (`+observationColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.SessionID, o.Mint, uint64(o.ObservedAt), uint64(o.Slot),
			o.VirtualSolReserves, o.VirtualTokenReserves, o.RealSolReserves,
			boolToUInt8(o.Complete), o.PriceUSD, o.MarketCapUSD, boolToUInt8(o.Eligible),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySessionID retrieves all observations of a session, ordered by observed_at ASC.
func (s *CurveObservationStore) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.CurveObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM curve_observations
		WHERE session_id = ?
		ORDER BY observed_at ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query by session id: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// GetByTimeRange retrieves observations within [start, end] (inclusive) across sessions.
func (s *CurveObservationStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CurveObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM curve_observations
		WHERE observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC, session_id ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// exists checks if an observation with the given key exists.
func (s *CurveObservationStore) exists(ctx context.Context, sessionID string, observedAt, slot int64) (bool, error) {
	query := `
		SELECT count(*) FROM curve_observations
		WHERE session_id = ? AND observed_at = ? AND slot = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, sessionID, uint64(observedAt), uint64(slot)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanObservations scans multiple rows.
func scanObservations(rows chRows) ([]*domain.CurveObservation, error) {
	var result []*domain.CurveObservation

	for rows.Next() {
		var o domain.CurveObservation
		var observedAt, slot uint64
		var complete, eligible uint8

		err := rows.Scan(
			&o.SessionID, &o.Mint, &observedAt, &slot,
			&o.VirtualSolReserves, &o.VirtualTokenReserves, &o.RealSolReserves,
			&complete, &o.PriceUSD, &o.MarketCapUSD, &eligible,
		)
		if err != nil {
			return nil, fmt.Errorf("scan curve observation row: %w", err)
		}

		o.ObservedAt = int64(observedAt)
		o.Slot = int64(slot)
		o.Complete = complete == 1
		o.Eligible = eligible == 1
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curve observation rows: %w", err)
	}

	return result, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
