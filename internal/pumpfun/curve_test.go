package pumpfun

import (
	"encoding/binary"
	"errors"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveData(vtr, vsr, rtr, rsr, supply uint64, complete byte, creator string) []byte {
	data := make([]byte, CurveAccountMinLen)
	copy(data, BondingCurveDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:], vtr)
	binary.LittleEndian.PutUint64(data[16:], vsr)
	binary.LittleEndian.PutUint64(data[24:], rtr)
	binary.LittleEndian.PutUint64(data[32:], rsr)
	binary.LittleEndian.PutUint64(data[40:], supply)
	data[48] = complete
	copy(data[49:], solanago.MustPublicKeyFromBase58(creator).Bytes())
	return data
}

func TestDecodeCurve(t *testing.T) {
	data := curveData(1_073_000_000_000_000, 30_000_000_000, 793_100_000_000_000, 0, 1_000_000_000_000_000, 0, testUser)

	state, err := DecodeCurve(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_073_000_000_000_000), state.VirtualTokenReserves)
	assert.Equal(t, uint64(30_000_000_000), state.VirtualSolReserves)
	assert.Equal(t, uint64(793_100_000_000_000), state.RealTokenReserves)
	assert.Equal(t, uint64(0), state.RealSolReserves)
	assert.Equal(t, uint64(1_000_000_000_000_000), state.TokenTotalSupply)
	assert.False(t, state.Complete)
	assert.Equal(t, testUser, state.Creator)
}

func TestDecodeCurve_TrailingBytesIgnored(t *testing.T) {
	data := append(curveData(1, 2, 3, 4, 5, 1, testUser), make([]byte, 70)...)

	state, err := DecodeCurve(data)
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, uint64(2), state.VirtualSolReserves)
}

func TestDecodeCurve_Deterministic(t *testing.T) {
	data := curveData(10, 20, 30, 40, 50, 0, testUser)
	a, err := DecodeCurve(data)
	require.NoError(t, err)
	b, err := DecodeCurve(data)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeCurve_Malformed(t *testing.T) {
	valid := curveData(1, 2, 3, 4, 5, 0, testUser)

	wrongDisc := append([]byte{}, valid...)
	wrongDisc[0] ^= 0xff

	badFlag := append([]byte{}, valid...)
	badFlag[48] = 2

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"shorter than discriminator", valid[:4]},
		{"truncated", valid[:CurveAccountMinLen-1]},
		{"wrong discriminator", wrongDisc},
		{"invalid complete flag", badFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := DecodeCurve(tt.data)
			assert.Nil(t, state)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.False(t, errors.Is(err, ErrNotMatching))
		})
	}
}
