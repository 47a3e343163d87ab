// Package clock abstracts time so that tickers and timestamps can be driven
// deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time and tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on a channel until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Option configures a Schedule.
type Option func(*Schedule)

// WithImmediateRun makes the schedule invoke fn once before the first tick.
func WithImmediateRun() Option {
	return func(s *Schedule) {
		s.immediate = true
	}
}

// Schedule runs a function on every tick of a ticker in its own goroutine.
type Schedule struct {
	ticker    Ticker
	fn        func(time.Time) bool
	immediate bool
	now       func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Every starts calling fn every d until fn returns false or Stop is called.
// The ticker is created before Every returns, so a mock clock advanced right
// after the call always reaches it.
func Every(c Clock, d time.Duration, fn func(time.Time) bool, opts ...Option) *Schedule {
	s := &Schedule{
		ticker: c.NewTicker(d),
		fn:     fn,
		now:    c.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

func (s *Schedule) run() {
	defer close(s.done)
	defer s.ticker.Stop()

	if s.immediate {
		select {
		case <-s.stop:
			return
		default:
		}
		if !s.fn(s.now()) {
			return
		}
	}

	for {
		select {
		case <-s.stop:
			return
		case now := <-s.ticker.C():
			// Stop wins over a tick that raced with it
			select {
			case <-s.stop:
				return
			default:
			}
			if !s.fn(now) {
				return
			}
		}
	}
}

// Stop ends the schedule and waits for the running invocation, if any, to
// return. It must not be called from inside fn.
func (s *Schedule) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Done is closed once the schedule goroutine has exited.
func (s *Schedule) Done() <-chan struct{} {
	return s.done
}
