package domain

import "time"

// CurveState is a decoded bonding curve account snapshot.
// Each update replaces the previous state wholesale.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64 // lamports
	RealTokenReserves    uint64
	RealSolReserves      uint64 // lamports
	TokenTotalSupply     uint64
	Complete             bool   // curve migrated, no more buys
	Creator              string // base58
}

// CurveUpdate is a raw bonding curve account update delivered by a feed.
type CurveUpdate struct {
	Account    string // bonding curve address
	Slot       int64
	Data       []byte // raw account data
	ReceivedAt time.Time
}

// CurveObservation is one evaluated curve update.
// Corresponds to curve_observations table in ClickHouse.
type CurveObservation struct {
	SessionID            string
	Mint                 string
	Slot                 int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	Complete             bool
	PriceUSD             float64 // SOL/USD used for evaluation
	MarketCapUSD         float64
	Eligible             bool
	ObservedAt           int64 // Unix timestamp in milliseconds
}
