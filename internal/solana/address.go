package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Well-known program addresses.
const (
	SystemProgramID          = "11111111111111111111111111111111"
	TokenProgramID           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	RentSysvarID             = "SysvarRent111111111111111111111111111111111"
)

const pdaMarker = "ProgramDerivedAddress"

// DecodeAddress decodes a base58 public key and checks its length.
func DecodeAddress(addr string) ([]byte, error) {
	b, err := base58.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("address %q: expected 32 bytes, got %d", addr, len(b))
	}
	return b, nil
}

// FindProgramAddress derives a program derived address and its bump seed.
// The bump is searched from 255 downward until the hash is off the ed25519 curve.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := DecodeAddress(programID)
	if err != nil {
		return "", 0, err
	}
	for _, seed := range seeds {
		if len(seed) > 32 {
			return "", 0, fmt.Errorf("seed longer than 32 bytes")
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("no viable bump seed for program %s", programID)
}

// FindAssociatedTokenAddress derives the associated token account of wallet for mint.
func FindAssociatedTokenAddress(wallet, mint string) (string, error) {
	w, err := DecodeAddress(wallet)
	if err != nil {
		return "", err
	}
	m, err := DecodeAddress(mint)
	if err != nil {
		return "", err
	}
	tokenProgram, err := DecodeAddress(TokenProgramID)
	if err != nil {
		return "", err
	}
	addr, _, err := FindProgramAddress([][]byte{w, tokenProgram, m}, AssociatedTokenProgramID)
	return addr, err
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
