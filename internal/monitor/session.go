package monitor

import (
	"sync"
	"time"

	"pump-sniper/internal/domain"
)

// session is the mutable state of one monitored token. The demux goroutine
// and the session goroutine share it; mu guards every field below it.
type session struct {
	id       string
	batchID  string
	token    domain.TokenInfo
	deadline time.Time
	inbox    chan domain.CurveUpdate

	mu        sync.Mutex
	status    domain.SessionStatus
	lastState *domain.CurveState
	marketCap float64
	updates   int
	late      int
	dropped   int
	decidedAt time.Time
}

func newSession(id, batchID string, token domain.TokenInfo, deadline time.Time, inbox int) *session {
	return &session{
		id:       id,
		batchID:  batchID,
		token:    token,
		deadline: deadline,
		inbox:    make(chan domain.CurveUpdate, inbox),
		status:   domain.SessionPending,
	}
}

// transition moves a pending session to the terminal status to.
// It returns false when the session was already terminal.
func (s *session) transition(to domain.SessionStatus, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != domain.SessionPending {
		return false
	}
	s.status = to
	s.decidedAt = at
	return true
}

func (s *session) terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Terminal()
}

func (s *session) observe(state *domain.CurveState, marketCap float64) {
	s.mu.Lock()
	s.lastState = state
	s.marketCap = marketCap
	s.updates++
	s.mu.Unlock()
}

func (s *session) setLastState(state *domain.CurveState) {
	s.mu.Lock()
	s.lastState = state
	s.mu.Unlock()
}

func (s *session) recordLate(state *domain.CurveState) {
	s.mu.Lock()
	if state != nil {
		s.lastState = state
	}
	s.late++
	s.mu.Unlock()
}

func (s *session) recordDrop() {
	s.mu.Lock()
	s.dropped++
	s.mu.Unlock()
}

// view returns a point-in-time copy.
func (s *session) view() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last *domain.CurveState
	if s.lastState != nil {
		st := *s.lastState
		last = &st
	}
	return domain.Session{
		ID:           s.id,
		BatchID:      s.batchID,
		Token:        s.token,
		Deadline:     s.deadline,
		Status:       s.status,
		LastState:    last,
		MarketCapUSD: s.marketCap,
		Updates:      s.updates,
		LateUpdates:  s.late,
		Dropped:      s.dropped,
		DecidedAt:    s.decidedAt,
	}
}

func (s *session) outcome(createdAt time.Time) *domain.SessionOutcome {
	v := s.view()
	return &domain.SessionOutcome{
		SessionID:    v.ID,
		BatchID:      v.BatchID,
		Mint:         v.Token.Mint,
		BondingCurve: v.Token.BondingCurve,
		Status:       v.Status,
		MarketCapUSD: v.MarketCapUSD,
		Updates:      v.Updates,
		Dropped:      v.Dropped,
		DeadlineAt:   v.Deadline.UnixMilli(),
		DecidedAt:    v.DecidedAt.UnixMilli(),
		CreatedAt:    createdAt.UnixMilli(),
	}
}
