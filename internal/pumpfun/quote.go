package pumpfun

import (
	"errors"
	"fmt"
	"math/bits"

	"pump-sniper/internal/domain"
)

// MaxSlippageBps is 100%.
const MaxSlippageBps = 10000

// Quote is the constant-product estimate of a buy.
type Quote struct {
	AmountIn     uint64
	TokensOut    uint64
	MinTokensOut uint64
	SlippageBps  uint64
}

// TokensOut returns vtr - (vsr*vtr)/(vsr+amountIn) using a 128-bit product.
func TokensOut(state domain.CurveState, amountIn uint64) (uint64, error) {
	vsr, vtr := state.VirtualSolReserves, state.VirtualTokenReserves
	switch {
	case vsr == 0:
		return 0, errors.New("virtual sol reserves are zero")
	case vtr == 0:
		return 0, errors.New("virtual token reserves are zero")
	case amountIn == 0:
		return 0, errors.New("amount in is zero")
	}

	den, carry := bits.Add64(vsr, amountIn, 0)
	if carry != 0 {
		return 0, fmt.Errorf("sol reserves overflow: %d + %d", vsr, amountIn)
	}
	hi, lo := bits.Mul64(vsr, vtr)
	// hi < den because vtr < 2^64 and vsr < den.
	q, _ := bits.Div64(hi, lo, den)
	return vtr - q, nil
}

// ApplySlippage returns floor(out * (10000 - bps) / 10000).
func ApplySlippage(out, bps uint64) (uint64, error) {
	if bps > MaxSlippageBps {
		return 0, fmt.Errorf("slippage %d bps exceeds %d", bps, MaxSlippageBps)
	}
	hi, lo := bits.Mul64(out, MaxSlippageBps-bps)
	q, _ := bits.Div64(hi, lo, MaxSlippageBps)
	return q, nil
}

// QuoteBuy computes expected and minimum tokens out for amountIn lamports.
func QuoteBuy(state domain.CurveState, amountIn, slippageBps uint64) (Quote, error) {
	if slippageBps > MaxSlippageBps {
		return Quote{}, fmt.Errorf("slippage %d bps exceeds %d", slippageBps, MaxSlippageBps)
	}
	out, err := TokensOut(state, amountIn)
	if err != nil {
		return Quote{}, err
	}
	minOut, err := ApplySlippage(out, slippageBps)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		AmountIn:     amountIn,
		TokensOut:    out,
		MinTokensOut: minOut,
		SlippageBps:  slippageBps,
	}, nil
}
