package decision

// LamportsPerSOL converts virtual SOL reserves to whole SOL.
const LamportsPerSOL = 1_000_000_000

// Reason explains an evaluation result.
type Reason string

const (
	ReasonEligible      Reason = "market cap at or above threshold"
	ReasonBelow         Reason = "market cap below threshold"
	ReasonNoReserves    Reason = "virtual sol reserves are zero"
	ReasonInvalidPrice  Reason = "price is not positive"
	ReasonCurveComplete Reason = "bonding curve complete"
)

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Result is the outcome of one evaluation.
type Result struct {
	MarketCapUSD float64
	ThresholdUSD float64
	PriceUSD     float64
	Eligible     bool
	Reason       Reason
	Criteria     []CriterionResult
}
