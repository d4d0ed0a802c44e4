package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/tutorly/internal/clock"
	"github.com/smallbiznis/tutorly/internal/directory/domain"
	obsmetrics "github.com/smallbiznis/tutorly/internal/observability/metrics"
	"go.uber.org/zap"
)

// State is the latest applied result of a session.
type State struct {
	Seq       uint64              `json:"seq"`
	Request   domain.QueryRequest `json:"request"`
	Page      *domain.Page        `json:"page,omitempty"`
	Error     string              `json:"error,omitempty"`
	AppliedAt time.Time           `json:"applied_at"`
}

// Outcome describes what happened to one submitted query.
type Outcome struct {
	Seq        uint64       `json:"seq"`
	Applied    bool         `json:"applied"`
	Superseded bool         `json:"superseded"`
	Page       *domain.Page `json:"page,omitempty"`
}

// Session tracks one operator's directory view. Every submitted query gets
// a sequence number; a result is applied only while its number is the
// latest issued. Older in-flight queries run to completion and are dropped.
type Session struct {
	svc       domain.Service
	debouncer *Debouncer
	clock     clock.Clock
	metrics   *obsmetrics.Metrics
	log       *zap.Logger

	mu         sync.Mutex
	issued     uint64
	lastSearch string
	state      State
}

func newSession(svc domain.Service, debounce time.Duration, clk clock.Clock, metrics *obsmetrics.Metrics, log *zap.Logger) *Session {
	return &Session{
		svc:       svc,
		debouncer: NewDebouncer(debounce),
		clock:     clk,
		metrics:   metrics,
		log:       log,
	}
}

// Submit runs req and applies its result if no newer query was issued in
// the meantime. The sequence number is taken on arrival, so a debounced
// search never outranks a request sent after it. A changed search term is
// debounced first; a submission replaced during the debounce window never
// reaches the store.
func (s *Session) Submit(ctx context.Context, req domain.QueryRequest) (Outcome, error) {
	seq, searchChanged := s.issue(strings.TrimSpace(req.Search))

	if searchChanged {
		latest, err := s.debouncer.Wait(ctx)
		if err != nil {
			return Outcome{Seq: seq}, err
		}
		if !latest || !s.current(seq) {
			s.metrics.RecordStaleDiscarded(ctx)
			return Outcome{Seq: seq, Superseded: true}, nil
		}
	}

	page, err := s.svc.Query(ctx, req)
	applied := s.apply(seq, req, page, err)
	if !applied {
		s.metrics.RecordStaleDiscarded(ctx)
		s.log.Debug("stale directory result discarded", zap.Uint64("seq", seq))
	}
	if err != nil {
		return Outcome{Seq: seq, Applied: applied}, err
	}
	return Outcome{Seq: seq, Applied: applied, Page: &page}, nil
}

// State returns the latest applied result.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// issue hands out the next sequence number and reports whether the search
// term differs from the one carried by the previous submission.
func (s *Session) issue(search string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := search != "" && search != s.lastSearch
	s.issued++
	s.lastSearch = search
	return s.issued, changed
}

func (s *Session) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.issued
}

func (s *Session) apply(seq uint64, req domain.QueryRequest, page domain.Page, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		return false
	}
	state := State{Seq: seq, Request: req, AppliedAt: s.clock.Now()}
	if err != nil {
		state.Error = err.Error()
	} else {
		state.Page = &page
	}
	s.state = state
	return true
}
