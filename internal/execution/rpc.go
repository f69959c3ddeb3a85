package execution

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/solana"
)

// RPC adapts a solana.RPCClient to AccountLookup, Simulator and BlockhashSource.
type RPC struct {
	client solana.RPCClient
}

// NewRPC creates the adapter.
func NewRPC(client solana.RPCClient) *RPC {
	return &RPC{client: client}
}

var (
	_ AccountLookup   = (*RPC)(nil)
	_ Simulator       = (*RPC)(nil)
	_ BlockhashSource = (*RPC)(nil)
)

// Exists fetches the associated token account of owner for mint.
func (r *RPC) Exists(ctx context.Context, owner, mint string) (bool, error) {
	ata, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, err
	}
	info, err := r.client.GetAccountInfo(ctx, ata)
	if err != nil {
		return false, fmt.Errorf("get account %s: %w", ata, err)
	}
	return info != nil, nil
}

// LatestBlockhash implements BlockhashSource.
func (r *RPC) LatestBlockhash(ctx context.Context) (solanago.Hash, error) {
	bh, err := r.client.GetLatestBlockhash(ctx)
	if err != nil {
		return solanago.Hash{}, err
	}
	return solanago.HashFromBase58(bh.Blockhash)
}

// Simulate implements Simulator.
func (r *RPC) Simulate(ctx context.Context, tx []byte) (*domain.SimulationReport, error) {
	res, err := r.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	return &domain.SimulationReport{
		Err:           res.Err,
		Logs:          res.Logs,
		UnitsConsumed: res.UnitsConsumed,
	}, nil
}
