package profileedit

import (
	"context"
	"sync"
	"time"

	"github.com/livme/livme/internal/model"
)

// manualScheduler never fires on its own; tests call Fire.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Fire runs every timer that is neither stopped nor already fired, as if
// the debounce delay had elapsed.
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()

	for _, t := range timers {
		t.mu.Lock()
		run := !t.stopped && !t.fired
		t.fired = true
		t.mu.Unlock()
		if run {
			t.f()
		}
	}
}

// Pending counts timers that would run on the next Fire.
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// fakeChecker records every handle it is asked about.
type fakeChecker struct {
	mu      sync.Mutex
	taken   map[string]bool
	err     error
	calls   []string
	onCheck func(handle string)
	block   bool
}

func (c *fakeChecker) CheckHandleAvailable(ctx context.Context, handle string) (bool, error) {
	c.mu.Lock()
	c.calls = append(c.calls, handle)
	onCheck, block, err := c.onCheck, c.block, c.err
	taken := c.taken[handle]
	c.mu.Unlock()

	if onCheck != nil {
		onCheck(handle)
	}
	if block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (c *fakeChecker) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// fakeSaver stores the profile in memory. Refresh applies normalise to the
// stored copy, standing in for server-side cleanup.
type fakeSaver struct {
	mu         sync.Mutex
	stored     *model.Profile
	updates    []model.ProfileUpdate
	err        error
	refreshErr error
	refreshes  int
	normalise  func(p *model.Profile)
}

func (s *fakeSaver) UpdateProfile(_ context.Context, u model.ProfileUpdate) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
	if s.err != nil {
		return nil, s.err
	}
	p := s.stored.Clone()
	u.Apply(p)
	s.stored = p
	return p.Clone(), nil
}

func (s *fakeSaver) Refresh(context.Context) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	if s.normalise != nil {
		s.normalise(s.stored)
	}
	return s.stored.Clone(), nil
}
