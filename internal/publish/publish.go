// Package publish hands built buy transactions to an external executor.
package publish

import (
	"context"

	"pump-sniper/internal/domain"
)

// Publisher delivers a signed transaction and its attempt record.
type Publisher interface {
	Publish(ctx context.Context, attempt *domain.BuyAttempt, tx []byte) error
	Close() error
}

// Noop discards every publication.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, *domain.BuyAttempt, []byte) error { return nil }

// Close implements Publisher.
func (Noop) Close() error { return nil }
