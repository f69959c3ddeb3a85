package domain

import "time"

// BatchStatus is the lifecycle state of a collection batch.
type BatchStatus string

const (
	BatchOpen   BatchStatus = "OPEN"
	BatchClosed BatchStatus = "CLOSED"
)

// Batch groups tokens decoded during one collection window.
// Tokens are kept in arrival order. A closed batch is handed downstream by
// value of its pointer and never touched by the collector again.
type Batch struct {
	ID       string
	Seq      uint64 // 1-based sequence number within the process
	Start    time.Time
	Duration time.Duration
	Tokens   []TokenInfo
	Status   BatchStatus
	ClosedAt time.Time
}

// End returns the nominal end of the collection window.
func (b *Batch) End() time.Time {
	return b.Start.Add(b.Duration)
}

// Len returns the number of tokens in the batch.
func (b *Batch) Len() int {
	return len(b.Tokens)
}

// BondingCurves returns the bonding curve addresses of all tokens, in batch order.
func (b *Batch) BondingCurves() []string {
	out := make([]string, len(b.Tokens))
	for i, t := range b.Tokens {
		out[i] = t.BondingCurve
	}
	return out
}
