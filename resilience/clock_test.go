package resilience

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// fakeClock advances instantly on After and records every wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	block  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if c.block {
		return nil
	}
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type scripted struct {
	status int
	header http.Header
	err    error
	before func()
}

// scriptedTransport replays responses in order, repeating the last one.
type scriptedTransport struct {
	mu     sync.Mutex
	script []scripted
	calls  int
}

func (s *scriptedTransport) Send(_ context.Context, _ OutboundCall) (Response, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	step := s.script[i]
	s.mu.Unlock()

	if step.before != nil {
		step.before()
	}
	if step.err != nil {
		return Response{}, step.err
	}
	return Response{Status: step.status, Header: step.header, Body: []byte(`{}`)}, nil
}

func (s *scriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func repeat(step scripted, n int) []scripted {
	out := make([]scripted, n)
	for i := range out {
		out[i] = step
	}
	return out
}
