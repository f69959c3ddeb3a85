package stub

import (
	"context"
	"sync"

	"pump-sniper/internal/domain"
)

// CreationSource is a channel-backed ingestion.CreationSource for testing.
type CreationSource struct {
	ch  chan domain.RawInstruction
	Err error
}

// NewCreationSource creates a source with the given buffer.
func NewCreationSource(buffer int) *CreationSource {
	return &CreationSource{ch: make(chan domain.RawInstruction, buffer)}
}

// Subscribe returns the backing channel.
func (s *CreationSource) Subscribe(_ context.Context) (<-chan domain.RawInstruction, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.ch, nil
}

// Send queues an instruction.
func (s *CreationSource) Send(raw domain.RawInstruction) {
	s.ch <- raw
}

// Close closes the backing channel, ending the stream.
func (s *CreationSource) Close() {
	close(s.ch)
}

// CurveFeed is an in-memory ingestion.CurveFeed for testing.
// Updates are pushed explicitly and routed to every live subscription
// that includes the update's account.
type CurveFeed struct {
	mu     sync.Mutex
	subs   map[*feedSub]struct{}
	total  int
	buffer int

	// Err, when set, is returned by Subscribe.
	Err error
}

type feedSub struct {
	accounts map[string]struct{}
	ch       chan domain.CurveUpdate
}

// NewCurveFeed creates a feed whose subscription channels hold buffer updates.
func NewCurveFeed(buffer int) *CurveFeed {
	if buffer <= 0 {
		buffer = 1024
	}
	return &CurveFeed{subs: make(map[*feedSub]struct{}), buffer: buffer}
}

// Subscribe registers accounts until ctx is cancelled, then closes the channel.
func (f *CurveFeed) Subscribe(ctx context.Context, accounts []string) (<-chan domain.CurveUpdate, error) {
	if f.Err != nil {
		return nil, f.Err
	}

	sub := &feedSub{
		accounts: make(map[string]struct{}, len(accounts)),
		ch:       make(chan domain.CurveUpdate, f.buffer),
	}
	for _, a := range accounts {
		sub.accounts[a] = struct{}{}
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.total++
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, sub)
		close(sub.ch)
		f.mu.Unlock()
	}()

	return sub.ch, nil
}

// Push delivers u to matching subscriptions without blocking and returns
// how many subscriptions received it.
func (f *CurveFeed) Push(u domain.CurveUpdate) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	delivered := 0
	for sub := range f.subs {
		if _, ok := sub.accounts[u.Account]; !ok {
			continue
		}
		select {
		case sub.ch <- u:
			delivered++
		default:
		}
	}
	return delivered
}

// Active returns the number of live subscriptions.
func (f *CurveFeed) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Total returns the number of Subscribe calls that succeeded.
func (f *CurveFeed) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}
