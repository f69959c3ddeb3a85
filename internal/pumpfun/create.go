package pumpfun

import (
	"bytes"
	"encoding/binary"
	"time"
	"unicode/utf8"

	"github.com/mr-tron/base58"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/solana"
)

// Create instruction account positions.
const (
	createAccountMint         = 0
	createAccountBondingCurve = 2
	createAccountUser         = 7
)

// DecodeCreate decodes a create instruction.
// accounts are the instruction's resolved account keys in IDL order:
// mint, mint_authority, bonding_curve, associated_bonding_curve, global,
// mpl_token_metadata, metadata, user.
func DecodeCreate(data []byte, accounts []string, createdAt time.Time) (*domain.TokenInfo, error) {
	if len(data) < DiscriminatorLen {
		return nil, malformed("instruction shorter than discriminator (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:DiscriminatorLen], CreateDiscriminator[:]) {
		return nil, notMatching("not a create instruction")
	}

	r := &reader{buf: data, off: DiscriminatorLen}
	name, err := r.string("name")
	if err != nil {
		return nil, err
	}
	symbol, err := r.string("symbol")
	if err != nil {
		return nil, err
	}
	uri, err := r.string("uri")
	if err != nil {
		return nil, err
	}

	var creator string
	switch rest := r.remaining(); {
	case rest == 0:
	case rest >= 32:
		creator = base58.Encode(r.buf[r.off : r.off+32])
	default:
		return nil, malformed("trailing %d bytes", rest)
	}

	if len(accounts) <= createAccountMint || accounts[createAccountMint] == "" {
		return nil, malformed("missing mint account")
	}
	mint := accounts[createAccountMint]

	bondingCurve, err := DeriveBondingCurve(mint)
	if err != nil {
		return nil, malformed("derive bonding curve: %v", err)
	}
	if len(accounts) > createAccountBondingCurve && accounts[createAccountBondingCurve] != bondingCurve {
		return nil, malformed("bonding curve account %s does not match derived %s",
			accounts[createAccountBondingCurve], bondingCurve)
	}

	associated, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return nil, malformed("derive associated bonding curve: %v", err)
	}

	if creator == "" && len(accounts) > createAccountUser {
		creator = accounts[createAccountUser]
	}

	return &domain.TokenInfo{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associated,
		Name:                   name,
		Symbol:                 symbol,
		URI:                    uri,
		Creator:                creator,
		CreatedAt:              createdAt,
	}, nil
}

// DeriveBondingCurve returns the bonding-curve PDA of mint.
func DeriveBondingCurve(mint string) (string, error) {
	mintBytes, err := solana.DecodeAddress(mint)
	if err != nil {
		return "", err
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(BondingCurveSeed), mintBytes}, ProgramID)
	return addr, err
}

// reader walks a borsh-encoded buffer.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) string(field string) (string, error) {
	if r.remaining() < 4 {
		return "", malformed("%s: missing length prefix", field)
	}
	n := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	if uint64(n) > uint64(r.remaining()) {
		return "", malformed("%s: length %d exceeds remaining %d bytes", field, n, r.remaining())
	}
	b := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	if !utf8.Valid(b) {
		return "", malformed("%s: invalid utf-8", field)
	}
	return string(b), nil
}
