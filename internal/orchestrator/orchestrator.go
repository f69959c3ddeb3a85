// Package orchestrator wires the sniper stages into one pipeline.
// Flow: creation source → detector → collector → monitor → dispatcher
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pump-sniper/internal/batch"
	"pump-sniper/internal/discovery"
	"pump-sniper/internal/domain"
	"pump-sniper/internal/execution"
	"pump-sniper/internal/ingestion"
	"pump-sniper/internal/monitor"
)

// DefaultTokenBuffer is the capacity of the decoded-token channel.
const DefaultTokenBuffer = 256

// PriceRefresher keeps a price cache warm until ctx is done.
type PriceRefresher interface {
	Run(ctx context.Context, interval time.Duration) error
}

// Orchestrator coordinates the pipeline stages.
type Orchestrator struct {
	source     ingestion.CreationSource
	detector   *discovery.Detector
	collector  *batch.Collector
	monitor    *monitor.Monitor
	plans      <-chan domain.BuyPlan
	dispatcher *execution.Dispatcher

	refresher    PriceRefresher
	priceRefresh time.Duration
	tokenBuffer  int
	log          *logrus.Entry
}

// Options for creating Orchestrator.
type Options struct {
	// Required stages
	Source     ingestion.CreationSource
	Detector   *discovery.Detector
	Collector  *batch.Collector
	Monitor    *monitor.Monitor
	Plans      <-chan domain.BuyPlan // the channel Monitor sends on
	Dispatcher *execution.Dispatcher

	// Optional
	Refresher    PriceRefresher
	PriceRefresh time.Duration
	TokenBuffer  int
	Logger       *logrus.Entry
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		source:       opts.Source,
		detector:     opts.Detector,
		collector:    opts.Collector,
		monitor:      opts.Monitor,
		plans:        opts.Plans,
		dispatcher:   opts.Dispatcher,
		refresher:    opts.Refresher,
		priceRefresh: opts.PriceRefresh,
		tokenBuffer:  opts.TokenBuffer,
		log:          opts.Logger,
	}
	if o.tokenBuffer <= 0 {
		o.tokenBuffer = DefaultTokenBuffer
	}
	if o.priceRefresh <= 0 {
		o.priceRefresh = 30 * time.Second
	}
	if o.log == nil {
		o.log = logrus.NewEntry(logrus.StandardLogger())
	}
	o.log = o.log.WithField("component", "orchestrator")
	return o
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	Batches int64
	Plans   int64
}

// Run executes the pipeline until the creation source ends or ctx is done.
// Cancellation is a clean shutdown and returns no error.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	if o.refresher != nil {
		refreshCtx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := o.refresher.Run(refreshCtx, o.priceRefresh); err != nil && !errors.Is(err, context.Canceled) {
				o.log.WithError(err).Warn("price refresher stopped")
			}
		}()
		defer func() {
			stop()
			<-done
		}()
	}

	raw, err := o.source.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe to creation source: %w", err)
	}

	tokens := make(chan domain.TokenInfo, o.tokenBuffer)
	closed := make(chan *domain.Batch)
	batches := make(chan *domain.Batch)
	plans := make(chan domain.BuyPlan)

	o.log.Info("pipeline started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.detector.Run(gctx, raw, tokens) })
	g.Go(func() error { return o.collector.Run(gctx, tokens, closed) })
	g.Go(func() error { return forward(gctx, closed, batches, &result.Batches) })
	g.Go(func() error { return o.monitor.Run(gctx, batches) })
	g.Go(func() error { return forward(gctx, o.plans, plans, &result.Plans) })
	g.Go(func() error { return o.dispatcher.Run(gctx, plans) })

	err = g.Wait()

	o.log.WithFields(logrus.Fields{
		"batches": atomic.LoadInt64(&result.Batches),
		"plans":   atomic.LoadInt64(&result.Plans),
	}).Info("pipeline stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return result, err
	}
	return result, nil
}

// forward moves values from in to out, counting them, and closes out on return.
func forward[T any](ctx context.Context, in <-chan T, out chan<- T, n *int64) error {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				return nil
			}
			atomic.AddInt64(n, 1)
			select {
			case out <- v:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
