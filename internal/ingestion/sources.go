// Package ingestion adapts Solana subscriptions into the sniper's event streams.
package ingestion

import (
	"context"

	"pump-sniper/internal/domain"
)

// CreationSource delivers pump.fun program instructions that may be token creations.
type CreationSource interface {
	// Subscribe returns a channel of raw program instructions.
	// The channel is closed when ctx is cancelled or the source fails.
	Subscribe(ctx context.Context) (<-chan domain.RawInstruction, error)
}

// CurveFeed delivers bonding curve account updates.
type CurveFeed interface {
	// Subscribe returns a merged channel of updates for accounts.
	// Per-account order is preserved. The channel is closed once ctx is
	// cancelled and every account subscription has been released.
	Subscribe(ctx context.Context, accounts []string) (<-chan domain.CurveUpdate, error)
}
