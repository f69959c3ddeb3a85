// Package discovery turns raw pump.fun instructions into newly created tokens.
package discovery

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/pumpfun"
	"pump-sniper/internal/storage"
)

// Detector decodes create instructions and keeps the first token seen per mint.
// It is owned by one goroutine and is not safe for concurrent use.
type Detector struct {
	seenMints map[string]bool
	store     storage.TokenStore
	log       *logrus.Entry
}

// NewDetector creates a detector journaling accepted tokens to store.
// A nil store keeps dedupe in memory only.
func NewDetector(store storage.TokenStore, log *logrus.Entry) *Detector {
	if log == nil {
		log = logrus.WithField("component", "detector")
	}
	return &Detector{
		seenMints: make(map[string]bool),
		store:     store,
		log:       log,
	}
}

// Process decodes raw and returns the token if it is the first create for its mint.
// Non-create instructions, malformed creates and duplicates return nil.
// A failed journal write is logged and does not reject the token.
func (d *Detector) Process(ctx context.Context, raw domain.RawInstruction) *domain.TokenInfo {
	token, err := pumpfun.DecodeCreate(raw.Data, raw.Accounts, raw.ObservedAt)
	if err != nil {
		if errors.Is(err, pumpfun.ErrMalformed) {
			observability.RecordTokenMalformed()
			d.log.WithError(err).WithFields(logrus.Fields{
				"signature": raw.Signature,
				"slot":      raw.Slot,
			}).Warn("malformed create instruction")
		}
		return nil
	}
	token.Signature = raw.Signature
	token.Slot = raw.Slot

	log := d.log.WithFields(logrus.Fields{"mint": token.Mint, "signature": raw.Signature})

	// Check in-memory cache first
	if d.seenMints[token.Mint] {
		observability.RecordTokenDuplicate()
		log.Debug("duplicate create ignored")
		return nil
	}

	if d.store != nil {
		err := d.store.Insert(ctx, token)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Journaled by an earlier run or another process
			d.seenMints[token.Mint] = true
			observability.RecordTokenDuplicate()
			log.Debug("mint already journaled")
			return nil
		case err != nil:
			log.WithError(err).Warn("token journal write failed")
		}
	}

	d.seenMints[token.Mint] = true
	observability.RecordTokenDecoded()
	log.WithFields(logrus.Fields{
		"symbol":        token.Symbol,
		"bonding_curve": token.BondingCurve,
	}).Info("new token")

	return token
}

// Run processes instructions from in until it closes or ctx ends, forwarding
// new tokens to out. A full out drops the token. out is closed on return.
func (d *Detector) Run(ctx context.Context, in <-chan domain.RawInstruction, out chan<- domain.TokenInfo) error {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-in:
			if !ok {
				return nil
			}
			token := d.Process(ctx, raw)
			if token == nil {
				continue
			}
			select {
			case out <- *token:
			default:
				observability.RecordTokenDropped()
				d.log.WithField("mint", token.Mint).Warn("token channel full, token dropped")
			}
		}
	}
}

// Seen reports whether mint has been accepted or journaled.
func (d *Detector) Seen(mint string) bool {
	return d.seenMints[mint]
}
