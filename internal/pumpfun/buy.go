package pumpfun

import (
	"encoding/binary"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"pump-sniper/internal/solana"
)

// BuyAccounts are the per-token accounts of a buy instruction.
type BuyAccounts struct {
	Mint                   string
	BondingCurve           string
	AssociatedBondingCurve string
	BuyerTokenAccount      string
	Buyer                  string
}

// EncodeBuyData returns discriminator || amount u64 LE || max_sol_cost u64 LE.
func EncodeBuyData(amount, maxSolCost uint64) []byte {
	data := make([]byte, DiscriminatorLen+16)
	copy(data, BuyDiscriminator[:])
	binary.LittleEndian.PutUint64(data[DiscriminatorLen:], amount)
	binary.LittleEndian.PutUint64(data[DiscriminatorLen+8:], maxSolCost)
	return data
}

// NewBuyInstruction builds the buy instruction. amount is the minimum token
// amount to receive and maxSolCost the lamports the buyer is willing to spend.
func NewBuyInstruction(acc BuyAccounts, amount, maxSolCost uint64) (solanago.Instruction, error) {
	keys := []struct {
		addr     string
		writable bool
		signer   bool
	}{
		{GlobalAccount, true, false},
		{FeeRecipient, true, false},
		{acc.Mint, true, false},
		{acc.BondingCurve, true, false},
		{acc.AssociatedBondingCurve, true, false},
		{acc.BuyerTokenAccount, true, false},
		{acc.Buyer, true, true},
		{solana.SystemProgramID, false, false},
		{solana.TokenProgramID, false, false},
		{solana.RentSysvarID, false, false},
		{EventAuthority, false, false},
		{ProgramID, false, false},
	}

	metas := make(solanago.AccountMetaSlice, 0, len(keys))
	for i, k := range keys {
		pk, err := solanago.PublicKeyFromBase58(k.addr)
		if err != nil {
			return nil, fmt.Errorf("buy account %d (%q): %w", i, k.addr, err)
		}
		metas = append(metas, solanago.NewAccountMeta(pk, k.writable, k.signer))
	}

	program := solanago.MustPublicKeyFromBase58(ProgramID)
	return solanago.NewInstruction(program, metas, EncodeBuyData(amount, maxSolCost)), nil
}
