package ingestion

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/pumpfun"
	"pump-sniper/internal/solana"
)

const (
	maxRetries     = 3
	baseRetryDelay = 500 * time.Millisecond
)

// retryGetTransaction fetches a transaction with exponential backoff retry.
// A transaction the node has not indexed yet (nil result) is retried as well.
func retryGetTransaction(ctx context.Context, rpc solana.RPCClient, signature string, log *logrus.Entry) (*solana.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		tx, err := rpc.GetTransaction(ctx, signature)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err == nil {
			err = fmt.Errorf("transaction %s not available", signature)
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Exponential backoff: 500ms, 1s, 2s
		delay := baseRetryDelay * time.Duration(1<<attempt)
		log.WithFields(logrus.Fields{
			"signature": signature,
			"attempt":   attempt + 1,
			"delay":     delay,
		}).WithError(err).Debug("retrying getTransaction")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// WSCreationSource emits pump.fun create instructions from a live logs subscription.
// Log lines only tell that a create happened; the instruction bytes and accounts
// come from getTransaction.
type WSCreationSource struct {
	ws      solana.WSClient
	rpc     solana.RPCClient
	program string
	workers int
	buffer  int
	now     func() time.Time
	log     *logrus.Entry
}

// CreationSourceOption configures a WSCreationSource.
type CreationSourceOption func(*WSCreationSource)

// WithWorkers sets how many transactions are fetched concurrently.
func WithWorkers(n int) CreationSourceOption {
	return func(s *WSCreationSource) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSourceClock overrides the observation time source.
func WithSourceClock(now func() time.Time) CreationSourceOption {
	return func(s *WSCreationSource) { s.now = now }
}

// WithSourceLogger sets the logger.
func WithSourceLogger(log *logrus.Entry) CreationSourceOption {
	return func(s *WSCreationSource) { s.log = log }
}

// NewWSCreationSource creates a creation source for the pump.fun program.
func NewWSCreationSource(ws solana.WSClient, rpc solana.RPCClient, opts ...CreationSourceOption) *WSCreationSource {
	s := &WSCreationSource{
		ws:      ws,
		rpc:     rpc,
		program: pumpfun.ProgramID,
		workers: 4,
		buffer:  100,
		now:     time.Now,
		log:     logrus.WithField("component", "ws-create"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe implements CreationSource.
func (s *WSCreationSource) Subscribe(ctx context.Context) (<-chan domain.RawInstruction, error) {
	logsCh, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{s.program}})
	if err != nil {
		return nil, fmt.Errorf("subscribe logs: %w", err)
	}
	s.log.WithField("program", s.program).Info("subscribed to program logs")

	out := make(chan domain.RawInstruction, s.buffer)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case notif, ok := <-logsCh:
					if !ok {
						return
					}
					s.processNotification(ctx, out, notif)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// processNotification fetches a create transaction and emits its pump.fun instructions.
func (s *WSCreationSource) processNotification(ctx context.Context, out chan<- domain.RawInstruction, notif solana.LogNotification) {
	// Skip failed transactions
	if notif.Err != nil {
		return
	}
	if !HasCreateLog(notif.Logs) {
		return
	}
	observability.UpdateHighestSlot(notif.Slot)

	log := s.log.WithFields(logrus.Fields{"signature": notif.Signature, "slot": notif.Slot})

	tx, err := retryGetTransaction(ctx, s.rpc, notif.Signature, log)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Warn("create transaction unavailable, event dropped")
		}
		return
	}

	observedAt := s.now()
	for _, ix := range tx.ProgramInstructions(s.program) {
		if pumpfun.Classify(ix.Data) != pumpfun.KindCreate {
			continue
		}
		raw := domain.RawInstruction{
			Signature:  notif.Signature,
			Slot:       notif.Slot,
			Index:      ix.Index,
			Data:       ix.Data,
			Accounts:   ix.Accounts,
			ObservedAt: observedAt,
		}
		select {
		case out <- raw:
		case <-ctx.Done():
			return
		}
	}
}

// HasCreateLog reports whether logs contain the pump.fun create instruction line.
func HasCreateLog(logs []string) bool {
	for _, line := range logs {
		if strings.HasPrefix(line, pumpfun.CreateLogLine) {
			return true
		}
	}
	return false
}

// WSCurveFeed merges one accountSubscribe stream per bonding curve.
type WSCurveFeed struct {
	ws      solana.WSClient
	buffer  int
	dropped atomic.Uint64
	now     func() time.Time
	log     *logrus.Entry
}

// NewWSCurveFeed creates a curve feed. buffer sizes the merged channel.
func NewWSCurveFeed(ws solana.WSClient, buffer int, log *logrus.Entry) *WSCurveFeed {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = logrus.WithField("component", "ws-curve")
	}
	return &WSCurveFeed{ws: ws, buffer: buffer, now: time.Now, log: log}
}

// Dropped returns how many updates were dropped on a full merged channel.
func (f *WSCurveFeed) Dropped() uint64 {
	return f.dropped.Load()
}

// Subscribe implements CurveFeed. An account whose subscription fails is
// logged and skipped; Subscribe fails only when no account could be
// subscribed or ctx ends first.
func (f *WSCurveFeed) Subscribe(ctx context.Context, accounts []string) (<-chan domain.CurveUpdate, error) {
	type accountSub struct {
		handle  uint64
		account string
		ch      <-chan solana.AccountNotification
	}

	release := func(subs []accountSub) {
		for _, s := range subs {
			_ = f.ws.Unsubscribe(s.handle)
		}
	}

	subs := make([]accountSub, 0, len(accounts))
	var lastErr error
	for _, account := range accounts {
		handle, ch, err := f.ws.SubscribeAccount(ctx, account)
		if err != nil {
			if ctx.Err() != nil {
				release(subs)
				return nil, ctx.Err()
			}
			lastErr = err
			f.log.WithError(err).WithField("account", account).Warn("account subscription failed, curve skipped")
			continue
		}
		subs = append(subs, accountSub{handle: handle, account: account, ch: ch})
	}
	if len(subs) == 0 && lastErr != nil {
		return nil, fmt.Errorf("subscribe %d accounts: %w", len(accounts), lastErr)
	}

	out := make(chan domain.CurveUpdate, f.buffer)

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s accountSub) {
			defer wg.Done()
			for n := range s.ch {
				update := domain.CurveUpdate{
					Account:    s.account,
					Slot:       n.Slot,
					Data:       n.Data,
					ReceivedAt: f.now(),
				}
				select {
				case out <- update:
				default:
					f.dropped.Add(1)
					observability.RecordCurveUpdateDropped("feed_full")
					f.log.WithField("account", s.account).Warn("curve feed full, update dropped")
				}
			}
		}(s)
	}

	go func() {
		<-ctx.Done()
		for _, s := range subs {
			if err := f.ws.Unsubscribe(s.handle); err != nil {
				f.log.WithError(err).WithField("account", s.account).Debug("unsubscribe failed")
			}
		}
		wg.Wait()
		close(out)
	}()

	return out, nil
}

var (
	_ CreationSource = (*WSCreationSource)(nil)
	_ CurveFeed      = (*WSCurveFeed)(nil)
)
