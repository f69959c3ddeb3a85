// Package pumpfun decodes pump.fun program instructions and bonding-curve
// accounts and encodes the buy instruction.
package pumpfun

import (
	"bytes"
	"crypto/sha256"
)

// Program and fixed account addresses.
const (
	ProgramID        = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	GlobalAccount    = "4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"
	FeeRecipient     = "CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM"
	EventAuthority   = "Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1"
	BondingCurveSeed = "bonding-curve"

	// CreateLogLine is logged by the program for every create instruction.
	CreateLogLine = "Program log: Instruction: Create"
)

// DiscriminatorLen is the length of instruction and account discriminators.
const DiscriminatorLen = 8

// Discriminators, derived from the anchor namespace hash.
var (
	CreateDiscriminator       = discriminator("global:create")
	BuyDiscriminator          = discriminator("global:buy")
	SellDiscriminator         = discriminator("global:sell")
	BondingCurveDiscriminator = discriminator("account:BondingCurve")
)

func discriminator(preimage string) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

// Kind identifies a pump.fun instruction by its discriminator.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreate
	KindBuy
	KindSell
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Classify returns the instruction kind of data.
func Classify(data []byte) Kind {
	if len(data) < DiscriminatorLen {
		return KindUnknown
	}
	prefix := data[:DiscriminatorLen]
	switch {
	case bytes.Equal(prefix, CreateDiscriminator[:]):
		return KindCreate
	case bytes.Equal(prefix, BuyDiscriminator[:]):
		return KindBuy
	case bytes.Equal(prefix, SellDiscriminator[:]):
		return KindSell
	default:
		return KindUnknown
	}
}
