package domain

import "time"

// TokenInfo is the identity of a token decoded from a pump.fun create instruction.
// Immutable once decoded; sessions only read it.
type TokenInfo struct {
	Mint                   string    // token mint address (base58)
	BondingCurve           string    // derived bonding curve PDA
	AssociatedBondingCurve string    // bonding curve's token account for Mint
	Name                   string    // display name
	Symbol                 string    // ticker
	URI                    string    // metadata URI
	Creator                string    // creator pubkey, falls back to the user account
	Signature              string    // create transaction signature (empty when unknown)
	Slot                   int64     // slot of the create transaction
	CreatedAt              time.Time // time the create event was observed
}

// RawInstruction is an undecoded program instruction extracted from a transaction.
type RawInstruction struct {
	Signature  string
	Slot       int64
	Index      int      // position in the transaction, inner instructions follow their parent
	Data       []byte   // instruction data
	Accounts   []string // resolved account keys, in instruction order
	ObservedAt time.Time
}
