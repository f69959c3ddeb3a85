package pumpfun

import (
	"bytes"
	"encoding/binary"

	"github.com/mr-tron/base58"

	"pump-sniper/internal/domain"
)

// Bonding-curve account layout.
const (
	offVirtualTokenReserves = 8
	offVirtualSolReserves   = 16
	offRealTokenReserves    = 24
	offRealSolReserves      = 32
	offTokenTotalSupply     = 40
	offComplete             = 48
	offCreator              = 49

	// CurveAccountMinLen is the smallest decodable bonding-curve account.
	CurveAccountMinLen = offCreator + 32
)

// DecodeCurve decodes bonding-curve account data.
func DecodeCurve(data []byte) (*domain.CurveState, error) {
	if len(data) < CurveAccountMinLen {
		return nil, malformed("curve account too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:DiscriminatorLen], BondingCurveDiscriminator[:]) {
		return nil, malformed("not a bonding curve account")
	}

	var complete bool
	switch data[offComplete] {
	case 0:
	case 1:
		complete = true
	default:
		return nil, malformed("invalid complete flag %d", data[offComplete])
	}

	return &domain.CurveState{
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[offVirtualTokenReserves:]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[offVirtualSolReserves:]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[offRealTokenReserves:]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[offRealSolReserves:]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(data[offTokenTotalSupply:]),
		Complete:             complete,
		Creator:              base58.Encode(data[offCreator : offCreator+32]),
	}, nil
}
