package decision

import (
	"fmt"
	"math"

	"pump-sniper/internal/domain"
)

// Evaluate returns the market cap of state at priceUSD per SOL and whether it
// reaches thresholdUSD. Degenerate input (no reserves, non-positive or NaN
// price) is ineligible with a zero market cap.
func Evaluate(state domain.CurveState, priceUSD, thresholdUSD float64) (float64, bool) {
	if state.VirtualSolReserves == 0 || !(priceUSD > 0) || math.IsInf(priceUSD, 0) {
		return 0, false
	}
	marketCap := float64(state.VirtualSolReserves) / LamportsPerSOL * priceUSD
	return marketCap, marketCap >= thresholdUSD
}

// Evaluator evaluates curve states against a fixed market-cap threshold.
type Evaluator struct {
	thresholdUSD float64
	skipComplete bool
}

// EvaluatorOption configures Evaluator.
type EvaluatorOption func(*Evaluator)

// WithSkipComplete makes curves that finished bonding ineligible.
func WithSkipComplete() EvaluatorOption {
	return func(e *Evaluator) {
		e.skipComplete = true
	}
}

// NewEvaluator creates an evaluator with the given USD threshold.
func NewEvaluator(thresholdUSD float64, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{thresholdUSD: thresholdUSD}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured USD threshold.
func (e *Evaluator) Threshold() float64 {
	return e.thresholdUSD
}

// Evaluate produces a Result with its criteria checklist.
func (e *Evaluator) Evaluate(state domain.CurveState, priceUSD float64) *Result {
	marketCap, eligible := Evaluate(state, priceUSD, e.thresholdUSD)

	criteria := []CriterionResult{
		{
			Name:      "Virtual SOL reserves",
			Threshold: "> 0",
			Actual:    fmt.Sprintf("%d", state.VirtualSolReserves),
			Pass:      state.VirtualSolReserves > 0,
		},
		{
			Name:      "SOL price",
			Threshold: "> 0",
			Actual:    fmt.Sprintf("%.4f", priceUSD),
			Pass:      priceUSD > 0 && !math.IsInf(priceUSD, 0),
		},
		{
			Name:      "Market cap",
			Threshold: fmt.Sprintf(">= %.2f USD", e.thresholdUSD),
			Actual:    fmt.Sprintf("%.2f USD", marketCap),
			Pass:      eligible,
		},
	}

	if e.skipComplete {
		criteria = append(criteria, CriterionResult{
			Name:      "Curve active",
			Threshold: "complete == false",
			Actual:    fmt.Sprintf("complete == %t", state.Complete),
			Pass:      !state.Complete,
		})
		if state.Complete {
			eligible = false
		}
	}

	var reason Reason
	switch {
	case !criteria[0].Pass:
		reason = ReasonNoReserves
	case !criteria[1].Pass:
		reason = ReasonInvalidPrice
	case e.skipComplete && state.Complete:
		reason = ReasonCurveComplete
	case eligible:
		reason = ReasonEligible
	default:
		reason = ReasonBelow
	}

	return &Result{
		MarketCapUSD: marketCap,
		ThresholdUSD: e.thresholdUSD,
		PriceUSD:     priceUSD,
		Eligible:     eligible,
		Reason:       reason,
		Criteria:     criteria,
	}
}
