package orchestrator

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sniper/internal/batch"
	"pump-sniper/internal/decision"
	"pump-sniper/internal/discovery"
	"pump-sniper/internal/domain"
	"pump-sniper/internal/execution"
	"pump-sniper/internal/ingestion/stub"
	"pump-sniper/internal/monitor"
	"pump-sniper/internal/price"
	"pump-sniper/internal/pumpfun"
	solanastub "pump-sniper/internal/solana/stub"
	"pump-sniper/internal/storage"
	"pump-sniper/internal/storage/memory"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func borshString(s string) []byte {
	b := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return b
}

func createInstruction(mint string) domain.RawInstruction {
	data := append([]byte{}, pumpfun.CreateDiscriminator[:]...)
	data = append(data, borshString("Pipeline")...)
	data = append(data, borshString("PIPE")...)
	data = append(data, borshString("https://example.com")...)
	return domain.RawInstruction{Signature: "create-sig", Slot: 1, Data: data, Accounts: []string{mint}, ObservedAt: time.Now()}
}

func curveData(vsr uint64) []byte {
	data := make([]byte, pumpfun.CurveAccountMinLen)
	copy(data, pumpfun.BondingCurveDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:], 1_073_000_000_000_000)
	binary.LittleEndian.PutUint64(data[16:], vsr)
	return data
}

type countingRefresher struct {
	runs atomic.Int32
}

func (r *countingRefresher) Run(ctx context.Context, _ time.Duration) error {
	r.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

type pipeline struct {
	source  *stub.CreationSource
	feed    *stub.CurveFeed
	journal *storage.Journal
	orch    *Orchestrator
	refresh *countingRefresher
}

func newPipeline(t *testing.T, monitorWindow time.Duration) *pipeline {
	t.Helper()
	p := &pipeline{
		source:  stub.NewCreationSource(8),
		feed:    stub.NewCurveFeed(8),
		journal: memory.NewJournal(),
		refresh: &countingRefresher{},
	}
	log := quietLogger()

	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	signer, err := execution.NewKeypairSigner(key.String())
	require.NoError(t, err)
	rpc := execution.NewRPC(solanastub.NewRPCClient())
	builder := execution.NewBuilder(execution.Config{Simulate: true}, signer, rpc, rpc,
		execution.WithSimulator(rpc), execution.WithBuilderLogger(log))

	plans := make(chan domain.BuyPlan, 4)
	mon := monitor.New(monitor.Config{Window: monitorWindow, AmountIn: 1_000_000_000, SlippageBps: 500},
		p.feed, price.Static(150), decision.NewEvaluator(4000), plans,
		monitor.WithJournal(p.journal), monitor.WithLogger(log))

	p.orch = New(Options{
		Source:     p.source,
		Detector:   discovery.NewDetector(p.journal.Tokens, log),
		Collector:  batch.NewCollector(time.Hour, batch.WithLogger(log)),
		Monitor:    mon,
		Plans:      plans,
		Dispatcher: execution.NewDispatcher(builder, p.journal.Buys, nil, execution.WithDispatcherLogger(log)),
		Refresher:  p.refresh,
		Logger:     log,
	})
	return p
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := newPipeline(t, 5*time.Second)
	mint := solanago.NewWallet().PublicKey().String()
	curve, err := pumpfun.DeriveBondingCurve(mint)
	require.NoError(t, err)

	type runOut struct {
		res *RunResult
		err error
	}
	done := make(chan runOut, 1)
	go func() {
		res, err := p.orch.Run(ctx)
		done <- runOut{res, err}
	}()

	p.source.Send(createInstruction(mint))
	p.source.Send(createInstruction(mint)) // duplicate
	p.source.Close()

	require.Eventually(t, func() bool { return p.feed.Active() == 1 }, 5*time.Second, 5*time.Millisecond)
	p.feed.Push(domain.CurveUpdate{Account: curve, Slot: 2, Data: curveData(30_000_000_000), ReceivedAt: time.Now()})

	var out runOut
	select {
	case out = <-done:
	case <-ctx.Done():
		t.Fatal("pipeline did not finish")
	}
	require.NoError(t, out.err)
	assert.Equal(t, int64(1), out.res.Batches)
	assert.Equal(t, int64(1), out.res.Plans)
	assert.Equal(t, int32(1), p.refresh.runs.Load())

	tokens, err := p.journal.Tokens.GetByTimeRange(ctx, 0, time.Now().Add(time.Minute).UnixMilli())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, curve, tokens[0].BondingCurve)

	outcomes, err := p.journal.Sessions.GetByTimeRange(ctx, 0, time.Now().Add(time.Minute).UnixMilli())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.SessionEligible, outcomes[0].Status)

	attempt, err := p.journal.Buys.GetBySessionID(ctx, outcomes[0].SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.BuyAttemptBuilt, attempt.Status)
	assert.True(t, attempt.Simulated)
	assert.True(t, attempt.CreatedATA)
	assert.Equal(t, uint64(32_882_258_064_516), attempt.MinTokensOut)
}

func TestOrchestrator_CancelIsCleanShutdown(t *testing.T) {
	p := newPipeline(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.orch.Run(ctx)
		done <- err
	}()

	p.source.Send(createInstruction(solanago.NewWallet().PublicKey().String()))
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestOrchestrator_SubscribeError(t *testing.T) {
	p := newPipeline(t, time.Second)
	p.source.Err = assert.AnError

	_, err := p.orch.Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
