package domain

import "time"

// BuyPlan is produced once per session that reaches ELIGIBLE.
type BuyPlan struct {
	SessionID         string
	BatchID           string
	Token             TokenInfo
	Curve             CurveState // state that triggered eligibility
	PriceUSD          float64
	MarketCapUSD      float64
	AmountIn          uint64 // lamports to spend (max_sol_cost)
	SlippageBps       uint64
	ExpectedTokensOut uint64
	MinTokensOut      uint64
	DecidedAt         time.Time
}

// SimulationReport is the result of a transaction dry-run.
type SimulationReport struct {
	Err           interface{} // nil when the simulation succeeded
	Logs          []string
	UnitsConsumed uint64
}

// OK reports whether the simulation succeeded.
func (r *SimulationReport) OK() bool {
	return r != nil && r.Err == nil
}

// BuyAttemptStatus is the result of a transaction build.
type BuyAttemptStatus string

const (
	BuyAttemptBuilt  BuyAttemptStatus = "BUILT"
	BuyAttemptFailed BuyAttemptStatus = "FAILED"
)

// BuyAttempt is the journal record of one transaction build.
// Corresponds to buy_attempts table in PostgreSQL.
type BuyAttempt struct {
	AttemptID         string // PRIMARY KEY, deterministic hash of session_id
	SessionID         string
	Mint              string
	Status            BuyAttemptStatus
	TxSignature       *string // nil when the build failed
	BuyerTokenAccount string
	CreatedATA        bool
	AmountIn          uint64
	ExpectedTokensOut uint64
	MinTokensOut      uint64
	SlippageBps       uint64
	Simulated         bool
	SimulationOK      bool
	SimulationError   *string
	UnitsConsumed     uint64
	Error             *string
	BuiltAt           int64 // Unix timestamp in milliseconds
}
