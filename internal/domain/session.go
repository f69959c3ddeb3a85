package domain

import "time"

// SessionStatus is the monitoring state of one token.
// Pending is the only non-terminal status.
type SessionStatus string

const (
	SessionPending  SessionStatus = "PENDING"
	SessionEligible SessionStatus = "ELIGIBLE"
	SessionExpired  SessionStatus = "EXPIRED"
)

// String returns the string representation of SessionStatus.
func (s SessionStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionEligible || s == SessionExpired
}

// IsValid checks if the status is a known value.
func (s SessionStatus) IsValid() bool {
	return s == SessionPending || s == SessionEligible || s == SessionExpired
}

// Session is a point-in-time view of a monitoring session.
type Session struct {
	ID           string
	BatchID      string
	Token        TokenInfo
	Deadline     time.Time
	Status       SessionStatus
	LastState    *CurveState // nil until the first decodable update
	MarketCapUSD float64     // market cap at the last evaluation
	Updates      int         // updates evaluated while pending
	LateUpdates  int         // updates received after a terminal status
	Dropped      int         // updates dropped on a full inbox or decode failure
	DecidedAt    time.Time   // zero while pending
}

// SessionOutcome is the journal record of a terminal session.
// Corresponds to session_outcomes table in PostgreSQL.
type SessionOutcome struct {
	SessionID    string        // PRIMARY KEY
	BatchID      string
	Mint         string
	BondingCurve string
	Status       SessionStatus // ELIGIBLE | EXPIRED
	MarketCapUSD float64
	Updates      int
	Dropped      int
	DeadlineAt   int64 // Unix timestamp in milliseconds
	DecidedAt    int64 // Unix timestamp in milliseconds
	CreatedAt    int64 // record creation timestamp (ms)
}
