// Package reporting summarises the sniper journals for a time range.
package reporting

import "time"

// Report is a journal summary.
type Report struct {
	GeneratedAt time.Time
	RangeStart  int64 // Unix ms, inclusive
	RangeEnd    int64 // Unix ms, inclusive
	Threshold   float64

	Summary  Summary
	Batches  []BatchRow   // ordered by first decision
	Sessions []SessionRow // ordered by decided_at
	Failures []FailureRow // failed builds and simulations
}

// Summary holds range-wide totals.
type Summary struct {
	Tokens          int
	Batches         int
	Sessions        int
	Eligible        int
	Expired         int
	EligibilityRate float64 // eligible / sessions, 0 without sessions
	Observations    int
	Built           int
	BuildFailed     int
	Simulated       int
	SimulationOK    int
	ATAsCreated     int
}

// BatchRow summarises the sessions of one batch.
type BatchRow struct {
	BatchID         string
	Sessions        int
	Eligible        int
	Expired         int
	MeanUpdates     float64
	MaxMarketCapUSD float64
	FirstDecidedAt  int64
}

// SessionRow is one terminal session and its build attempt, if any.
type SessionRow struct {
	SessionID     string
	BatchID       string
	Mint          string
	Status        string
	MarketCapUSD  float64
	Updates       int
	Dropped       int
	DecidedAt     int64
	AttemptStatus string // empty without an attempt
	TxSignature   string
	SimulationOK  bool
	MinTokensOut  uint64
}

// FailureRow describes a failed build or simulation.
type FailureRow struct {
	SessionID string
	Mint      string
	Stage     string // "build" or "simulation"
	Error     string
}
