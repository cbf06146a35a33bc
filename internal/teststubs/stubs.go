package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	appfixtures "github.com/preston-bernstein/epl-fixtures-service/internal/app/fixtures"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
)

// StubRefresher is a test double for poller.Refresher.
type StubRefresher struct {
	mu     sync.Mutex
	State  appfixtures.State
	Err    error
	Panic  any
	Forced []bool
	Calls  atomic.Int32
	Notify chan struct{}
}

// Refresh returns the configured state and error while tracking calls.
func (s *StubRefresher) Refresh(ctx context.Context, force bool) (appfixtures.State, error) {
	_ = ctx
	s.Calls.Add(1)
	s.mu.Lock()
	s.Forced = append(s.Forced, force)
	state, err, p := s.State, s.Err, s.Panic
	s.mu.Unlock()

	if s.Notify != nil {
		select {
		case s.Notify <- struct{}{}:
		default:
		}
	}
	if p != nil {
		panic(p)
	}
	return state, err
}

// Set swaps the configured result.
func (s *StubRefresher) Set(state appfixtures.State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.Err = err
}

// ForcedCalls returns the force flag of every call so far.
func (s *StubRefresher) ForcedCalls() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.Forced))
	copy(out, s.Forced)
	return out
}

// StubSource is a test double for providers.Source that replays Responses in
// order and repeats the last one.
type StubSource struct {
	mu        sync.Mutex
	Responses []providers.Response
	Errs      []error
	Requests  []providers.Request
	Calls     atomic.Int32
}

// Fetch returns the next scripted response.
func (s *StubSource) Fetch(ctx context.Context, req providers.Request) (providers.Response, error) {
	if err := ctx.Err(); err != nil {
		return providers.Response{}, err
	}
	n := int(s.Calls.Add(1)) - 1

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)

	var (
		resp providers.Response
		err  error
	)
	if len(s.Responses) > 0 {
		resp = s.Responses[min(n, len(s.Responses)-1)]
	}
	if len(s.Errs) > 0 {
		err = s.Errs[min(n, len(s.Errs)-1)]
	}
	return resp, err
}

// LastRequest returns the most recent request, if any.
func (s *StubSource) LastRequest() (providers.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Requests) == 0 {
		return providers.Request{}, false
	}
	return s.Requests[len(s.Requests)-1], true
}
