// Package monitor watches the bonding curves of a closed batch and emits a
// buy plan for every token whose market cap reaches the threshold in time.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pump-sniper/internal/decision"
	"pump-sniper/internal/domain"
	"pump-sniper/internal/idhash"
	"pump-sniper/internal/ingestion"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/price"
	"pump-sniper/internal/pumpfun"
	"pump-sniper/internal/storage"
)

// DefaultInboxSize is the per-session update buffer.
const DefaultInboxSize = 64

// Config holds the monitoring parameters.
type Config struct {
	Window      time.Duration // monitoring window per session
	InboxSize   int
	AmountIn    uint64 // lamports per buy
	SlippageBps uint64
}

// Monitor runs one session per token of each batch it receives.
type Monitor struct {
	cfg       Config
	feed      ingestion.CurveFeed
	oracle    price.Oracle
	evaluator *decision.Evaluator
	plans     chan<- domain.BuyPlan
	journal   *storage.Journal
	now       func() time.Time
	log       *logrus.Entry
}

// Option configures Monitor.
type Option func(*Monitor)

// WithClock sets the time source for deadlines and timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithJournal records observations and outcomes. Nil stores are skipped.
func WithJournal(j *storage.Journal) Option {
	return func(m *Monitor) {
		m.journal = j
	}
}

// New creates a monitor sending plans on plans.
func New(cfg Config, feed ingestion.CurveFeed, oracle price.Oracle, evaluator *decision.Evaluator,
	plans chan<- domain.BuyPlan, opts ...Option) *Monitor {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	m := &Monitor{
		cfg:       cfg,
		feed:      feed,
		oracle:    oracle,
		evaluator: evaluator,
		plans:     plans,
		journal:   &storage.Journal{},
		now:       time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.journal == nil {
		m.journal = &storage.Journal{}
	}
	m.log = m.log.WithField("component", "monitor")
	return m
}

// Run monitors every batch received on batches until the channel closes or
// ctx is done, then waits for all batches to finish and closes the plan channel.
func (m *Monitor) Run(ctx context.Context, batches <-chan *domain.Batch) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(m.plans)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-batches:
			if !ok {
				return nil
			}
			if b == nil || b.Len() == 0 {
				continue
			}
			wg.Add(1)
			go func(b *domain.Batch) {
				defer wg.Done()
				if _, err := m.MonitorBatch(ctx, b); err != nil && !errors.Is(err, context.Canceled) {
					m.log.WithError(err).WithField("batch_id", b.ID).Error("batch monitoring failed")
				}
			}(b)
		}
	}
}

// MonitorBatch runs the sessions of b and blocks until all of them end or
// ctx is done. It returns the final view of every session in batch order.
// Sessions still pending on cancellation are returned but not journaled.
// A failed curve subscription does not end the batch early: every session
// still runs until its deadline.
func (m *Monitor) MonitorBatch(ctx context.Context, b *domain.Batch) ([]domain.Session, error) {
	log := m.log.WithField("batch_id", b.ID)

	start := m.now()
	deadline := start.Add(m.cfg.Window)
	sessions := make([]*session, len(b.Tokens))
	byCurve := make(map[string]*session, len(b.Tokens))
	for i, token := range b.Tokens {
		s := newSession(idhash.ComputeSessionID(b.ID, token.Mint), b.ID, token, deadline, m.cfg.InboxSize)
		sessions[i] = s
		byCurve[token.BondingCurve] = s
	}

	subCtx, cancelSub := context.WithCancel(ctx)
	defer cancelSub()

	// Without a subscription the sessions still run and expire at the deadline.
	updates, err := m.feed.Subscribe(subCtx, b.BondingCurves())
	if err != nil {
		log.WithError(err).WithField("curves", len(b.Tokens)).Error("curve subscription failed")
		updates = nil
	}

	log.WithFields(logrus.Fields{
		"tokens":   len(sessions),
		"deadline": deadline,
	}).Info("monitoring batch")
	observability.AddActiveSessions(len(sessions))

	demuxDone := make(chan struct{})
	go func() {
		defer close(demuxDone)
		m.demux(subCtx, updates, byCurve, log)
	}()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session) {
			defer wg.Done()
			defer observability.AddActiveSessions(-1)
			m.runSession(ctx, s)
		}(s)
	}
	wg.Wait()

	cancelSub()
	<-demuxDone

	out := make([]domain.Session, len(sessions))
	counts := make(map[domain.SessionStatus]int)
	for i, s := range sessions {
		out[i] = s.view()
		counts[out[i].Status]++
	}
	log.WithFields(logrus.Fields{
		"eligible": counts[domain.SessionEligible],
		"expired":  counts[domain.SessionExpired],
		"pending":  counts[domain.SessionPending],
	}).Info("batch finished")

	return out, ctx.Err()
}

// demux routes updates to sessions by bonding curve until updates closes.
func (m *Monitor) demux(ctx context.Context, updates <-chan domain.CurveUpdate, byCurve map[string]*session, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			s, found := byCurve[u.Account]
			if !found {
				observability.RecordCurveUpdateDropped("unknown_account")
				continue
			}

			if s.terminal() {
				// Bookkeeping only, never re-evaluated
				state, err := pumpfun.DecodeCurve(u.Data)
				if err != nil {
					state = nil
				}
				s.recordLate(state)
				observability.RecordCurveUpdateLate()
				continue
			}

			select {
			case s.inbox <- u:
			default:
				s.recordDrop()
				observability.RecordCurveUpdateDropped("inbox_full")
				log.WithFields(logrus.Fields{
					"session_id": s.id,
					"slot":       u.Slot,
				}).Warn("session inbox full, update dropped")
			}
		}
	}
}

func (m *Monitor) runSession(ctx context.Context, s *session) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := m.log.WithFields(logrus.Fields{
		"batch_id":   s.batchID,
		"session_id": s.id,
		"mint":       s.token.Mint,
	})

	timer := time.NewTimer(s.deadline.Sub(m.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case u := <-s.inbox:
			if m.handleUpdate(ctx, s, u, log) {
				return
			}

		case <-timer.C:
			now := m.now()
			if remaining := s.deadline.Sub(now); remaining > 0 {
				timer.Reset(remaining)
				continue
			}
			if s.transition(domain.SessionExpired, now) {
				m.finish(ctx, s, log)
			}
			return
		}
	}
}

// handleUpdate evaluates one update and reports whether the session ended.
func (m *Monitor) handleUpdate(ctx context.Context, s *session, u domain.CurveUpdate, log *logrus.Entry) bool {
	log = log.WithField("slot", u.Slot)

	state, err := pumpfun.DecodeCurve(u.Data)
	if err != nil {
		s.recordDrop()
		observability.RecordCurveUpdateDropped("malformed")
		log.WithError(err).Warn("malformed curve update")
		return false
	}

	priceUSD, err := m.oracle.Price(ctx)
	if err != nil {
		s.setLastState(state)
		observability.RecordCurveUpdateDropped("price_unavailable")
		log.WithError(err).Warn("evaluation skipped")
		return false
	}

	result := m.evaluator.Evaluate(*state, priceUSD)
	s.observe(state, result.MarketCapUSD)
	observability.RecordCurveUpdateProcessed()

	observedAt := u.ReceivedAt
	if observedAt.IsZero() {
		observedAt = m.now()
	}
	m.journalObservation(ctx, &domain.CurveObservation{
		SessionID:            s.id,
		Mint:                 s.token.Mint,
		Slot:                 u.Slot,
		VirtualSolReserves:   state.VirtualSolReserves,
		VirtualTokenReserves: state.VirtualTokenReserves,
		RealSolReserves:      state.RealSolReserves,
		Complete:             state.Complete,
		PriceUSD:             priceUSD,
		MarketCapUSD:         result.MarketCapUSD,
		Eligible:             result.Eligible,
		ObservedAt:           observedAt.UnixMilli(),
	}, log)

	log.WithFields(logrus.Fields{
		"market_cap_usd": result.MarketCapUSD,
		"reason":         result.Reason,
	}).Debug("curve evaluated")

	if !result.Eligible {
		return false
	}

	// An unquotable curve still ends the session. The plan carries no minimum
	// and the builder records it as a failed attempt.
	quote, err := pumpfun.QuoteBuy(*state, m.cfg.AmountIn, m.cfg.SlippageBps)
	if err != nil {
		log.WithError(err).Warn("eligible curve could not be quoted")
		quote = pumpfun.Quote{AmountIn: m.cfg.AmountIn, SlippageBps: m.cfg.SlippageBps}
	}

	now := m.now()
	if !s.transition(domain.SessionEligible, now) {
		return true
	}

	plan := domain.BuyPlan{
		SessionID:         s.id,
		BatchID:           s.batchID,
		Token:             s.token,
		Curve:             *state,
		PriceUSD:          priceUSD,
		MarketCapUSD:      result.MarketCapUSD,
		AmountIn:          quote.AmountIn,
		SlippageBps:       quote.SlippageBps,
		ExpectedTokensOut: quote.TokensOut,
		MinTokensOut:      quote.MinTokensOut,
		DecidedAt:         now,
	}

	m.finish(ctx, s, log)

	select {
	case m.plans <- plan:
		log.WithFields(logrus.Fields{
			"market_cap_usd": result.MarketCapUSD,
			"min_tokens_out": quote.MinTokensOut,
		}).Info("session eligible")
	case <-ctx.Done():
		log.Warn("buy plan discarded on shutdown")
	}
	return true
}

// finish journals a terminal session.
func (m *Monitor) finish(ctx context.Context, s *session, log *logrus.Entry) {
	outcome := s.outcome(m.now())
	observability.RecordSessionOutcome(string(outcome.Status))

	log.WithFields(logrus.Fields{
		"status":         outcome.Status,
		"updates":        outcome.Updates,
		"dropped":        outcome.Dropped,
		"market_cap_usd": outcome.MarketCapUSD,
	}).Info("session ended")

	if m.journal.Sessions == nil {
		return
	}
	if err := m.journal.Sessions.Insert(ctx, outcome); err != nil {
		log.WithError(err).Warn("session outcome journal write failed")
	}
}

func (m *Monitor) journalObservation(ctx context.Context, obs *domain.CurveObservation, log *logrus.Entry) {
	if m.journal.Observations == nil {
		return
	}
	err := m.journal.Observations.InsertBulk(ctx, []*domain.CurveObservation{obs})
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		// Same slot delivered twice within one millisecond
	case err != nil:
		log.WithError(err).Warn("curve observation journal write failed")
	}
}
