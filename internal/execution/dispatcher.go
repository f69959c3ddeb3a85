package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/idhash"
	"pump-sniper/internal/observability"
	"pump-sniper/internal/publish"
	"pump-sniper/internal/storage"
)

// DefaultWorkers is the number of concurrent builds.
const DefaultWorkers = 4

// Dispatcher builds every plan it receives, journals the attempt and
// publishes transactions whose simulation did not fail.
type Dispatcher struct {
	builder   *Builder
	buys      storage.BuyStore
	publisher publish.Publisher
	workers   int
	now       func() time.Time
	log       *logrus.Entry
}

// DispatcherOption configures Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets build concurrency.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithDispatcherClock sets the time source.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(log *logrus.Entry) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// NewDispatcher creates a dispatcher. A nil buys store skips journaling and
// a nil publisher publishes nothing.
func NewDispatcher(builder *Builder, buys storage.BuyStore, publisher publish.Publisher, opts ...DispatcherOption) *Dispatcher {
	if publisher == nil {
		publisher = publish.Noop{}
	}
	d := &Dispatcher{
		builder:   builder,
		buys:      buys,
		publisher: publisher,
		workers:   DefaultWorkers,
		now:       time.Now,
		log:       logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("component", "dispatcher")
	return d
}

// Run handles plans until the channel closes or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, plans <-chan domain.BuyPlan) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case plan, ok := <-plans:
					if !ok {
						return nil
					}
					d.Handle(ctx, plan)
				}
			}
		})
	}
	return g.Wait()
}

// Handle builds one plan and returns its journal record. There is no retry.
func (d *Dispatcher) Handle(ctx context.Context, plan domain.BuyPlan) *domain.BuyAttempt {
	log := d.log.WithFields(logrus.Fields{
		"session_id": plan.SessionID,
		"mint":       plan.Token.Mint,
	})

	result, err := d.builder.Build(ctx, plan)
	now := d.now()

	attempt := &domain.BuyAttempt{
		AttemptID:         idhash.ComputeAttemptID(plan.SessionID),
		SessionID:         plan.SessionID,
		Mint:              plan.Token.Mint,
		AmountIn:          plan.AmountIn,
		ExpectedTokensOut: plan.ExpectedTokensOut,
		MinTokensOut:      plan.MinTokensOut,
		SlippageBps:       plan.SlippageBps,
		BuiltAt:           now.UnixMilli(),
	}

	latency := time.Duration(0)
	if !plan.DecidedAt.IsZero() {
		latency = now.Sub(plan.DecidedAt)
	}

	if err != nil {
		msg := err.Error()
		attempt.Status = domain.BuyAttemptFailed
		attempt.Error = &msg
		observability.RecordBuild(string(attempt.Status), latency)
		log.WithError(err).Error("buy build failed")
		d.journal(ctx, attempt, log)
		return attempt
	}

	sig := result.Signature.String()
	attempt.Status = domain.BuyAttemptBuilt
	attempt.TxSignature = &sig
	attempt.BuyerTokenAccount = result.BuyerTokenAccount.String()
	attempt.CreatedATA = result.CreatedATA

	if sim := result.Simulation; sim != nil {
		attempt.Simulated = true
		attempt.SimulationOK = sim.OK()
		attempt.UnitsConsumed = sim.UnitsConsumed
		if !sim.OK() {
			simErr := fmt.Sprint(sim.Err)
			attempt.SimulationError = &simErr
			observability.RecordSimulationFailure()
		}
	}
	observability.RecordBuild(string(attempt.Status), latency)

	log = log.WithField("signature", sig)
	log.WithFields(logrus.Fields{
		"min_tokens_out": plan.MinTokensOut,
		"amount_in":      plan.AmountIn,
		"created_ata":    attempt.CreatedATA,
		"simulated":      attempt.Simulated,
		"simulation_ok":  attempt.SimulationOK,
		"latency":        latency,
	}).Info("buy transaction built")

	d.journal(ctx, attempt, log)

	if attempt.Simulated && !attempt.SimulationOK {
		log.WithField("simulation_error", *attempt.SimulationError).Warn("simulation failed, transaction not published")
		return attempt
	}
	if err := d.publisher.Publish(ctx, attempt, result.Transaction); err != nil {
		observability.RecordPublishError()
		log.WithError(err).Error("publish failed")
	}
	return attempt
}

func (d *Dispatcher) journal(ctx context.Context, attempt *domain.BuyAttempt, log *logrus.Entry) {
	if d.buys == nil {
		return
	}
	err := d.buys.Insert(ctx, attempt)
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		log.Warn("buy attempt already journaled")
	case err != nil:
		log.WithError(err).Warn("buy attempt journal write failed")
	}
}
