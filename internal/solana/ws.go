package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeLogs subscribes to program logs matching the filter.
	// Notifications are never dropped; the reader blocks on a full channel.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// SubscribeAccount subscribes to data changes of one account.
	// The returned handle stays valid across reconnects.
	// Notifications are dropped when the channel is full.
	SubscribeAccount(ctx context.Context, pubkey string) (uint64, <-chan AccountNotification, error)

	// Unsubscribe cancels a subscription by handle and closes its channel.
	Unsubscribe(handle uint64) error

	// Close closes the WebSocket connection.
	Close() error
}

// LogsFilter defines subscription filter for logs.
type LogsFilter struct {
	// Mentions filters logs that mention any of these program IDs.
	Mentions []string
}

// LogNotification represents a logs subscription message.
type LogNotification struct {
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{}
}

// AccountNotification represents an account subscription message.
type AccountNotification struct {
	Pubkey   string
	Slot     int64
	Lamports uint64
	Owner    string
	Data     []byte
}
