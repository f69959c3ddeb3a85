package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/idhash"
	"pump-sniper/internal/storage/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	attempts []*domain.BuyAttempt
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, a *domain.BuyAttempt, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts = append(p.attempts, a)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attempts)
}

func newDispatcher(t *testing.T, lookup *fakeLookup, sim Simulator, pub *recordingPublisher) (*Dispatcher, *memory.BuyStore) {
	t.Helper()
	opts := []BuilderOption{WithBuilderLogger(quietLogger())}
	cfg := Config{}
	if sim != nil {
		cfg.Simulate = true
		opts = append(opts, WithSimulator(sim))
	}
	b := NewBuilder(cfg, newSigner(t), lookup, fakeBlockhash{}, opts...)
	store := memory.NewBuyStore()
	return NewDispatcher(b, store, pub, WithWorkers(2), WithDispatcherLogger(quietLogger())), store
}

func TestDispatcher_Built(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	d, store := newDispatcher(t, &fakeLookup{exists: false}, &fakeSimulator{report: &domain.SimulationReport{UnitsConsumed: 70000}}, pub)
	plan := testPlan(t)

	attempt := d.Handle(ctx, plan)
	assert.Equal(t, domain.BuyAttemptBuilt, attempt.Status)
	assert.Equal(t, idhash.ComputeAttemptID(plan.SessionID), attempt.AttemptID)
	require.NotNil(t, attempt.TxSignature)
	assert.True(t, attempt.CreatedATA)
	assert.True(t, attempt.Simulated)
	assert.True(t, attempt.SimulationOK)
	assert.Equal(t, uint64(70000), attempt.UnitsConsumed)
	assert.Equal(t, plan.MinTokensOut, attempt.MinTokensOut)
	assert.Nil(t, attempt.Error)

	stored, err := store.GetBySessionID(ctx, plan.SessionID)
	require.NoError(t, err)
	assert.Equal(t, *attempt.TxSignature, *stored.TxSignature)
	assert.Equal(t, 1, pub.count())
}

func TestDispatcher_BuildFailureJournaled(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	d, store := newDispatcher(t, &fakeLookup{err: errors.New("rpc down")}, nil, pub)
	plan := testPlan(t)

	attempt := d.Handle(ctx, plan)
	assert.Equal(t, domain.BuyAttemptFailed, attempt.Status)
	require.NotNil(t, attempt.Error)
	assert.Contains(t, *attempt.Error, "rpc down")
	assert.Nil(t, attempt.TxSignature)

	stored, err := store.GetByID(ctx, attempt.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuyAttemptFailed, stored.Status)
	assert.Equal(t, 0, pub.count())
}

func TestDispatcher_UnquotedPlanJournaledAsFailed(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	d, store := newDispatcher(t, &fakeLookup{exists: true}, nil, pub)
	plan := testPlan(t)
	plan.ExpectedTokensOut, plan.MinTokensOut = 0, 0

	attempt := d.Handle(ctx, plan)
	assert.Equal(t, domain.BuyAttemptFailed, attempt.Status)
	require.NotNil(t, attempt.Error)
	assert.Contains(t, *attempt.Error, ErrBuildFailure.Error())

	stored, err := store.GetBySessionID(ctx, plan.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuyAttemptFailed, stored.Status)
	assert.Equal(t, 0, pub.count())
}

func TestDispatcher_FailedSimulationNotPublished(t *testing.T) {
	pub := &recordingPublisher{}
	sim := &fakeSimulator{report: &domain.SimulationReport{Err: "InsufficientFundsForRent"}}
	d, _ := newDispatcher(t, &fakeLookup{exists: true}, sim, pub)

	attempt := d.Handle(context.Background(), testPlan(t))
	assert.Equal(t, domain.BuyAttemptBuilt, attempt.Status)
	assert.False(t, attempt.SimulationOK)
	require.NotNil(t, attempt.SimulationError)
	assert.Equal(t, "InsufficientFundsForRent", *attempt.SimulationError)
	assert.Equal(t, 0, pub.count())
}

func TestDispatcher_PublishErrorKeepsAttempt(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	d, store := newDispatcher(t, &fakeLookup{exists: true}, nil, pub)
	plan := testPlan(t)

	attempt := d.Handle(context.Background(), plan)
	assert.Equal(t, domain.BuyAttemptBuilt, attempt.Status)

	_, err := store.GetBySessionID(context.Background(), plan.SessionID)
	require.NoError(t, err)
}

func TestDispatcher_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub := &recordingPublisher{}
	d, store := newDispatcher(t, &fakeLookup{exists: true}, nil, pub)

	plans := make(chan domain.BuyPlan, 3)
	for _, id := range []string{"s1", "s2", "s3"} {
		p := testPlan(t)
		p.SessionID = id
		plans <- p
	}
	close(plans)

	require.NoError(t, d.Run(ctx, plans))
	assert.Equal(t, 3, pub.count())

	attempts, err := store.GetByTimeRange(ctx, 0, time.Now().Add(time.Minute).UnixMilli())
	require.NoError(t, err)
	assert.Len(t, attempts, 3)
}
