package clock

import (
	"sync"
	"time"
)

// Mock is a Clock whose time only moves when Advance is called.
type Mock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMock creates a mock clock set to start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// Now returns the mock's current time.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTicker creates a ticker that fires as the mock clock is advanced.
func (m *Mock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := &mockTicker{
		mock:     m,
		c:        make(chan time.Time, 1),
		interval: d,
		next:     m.now.Add(d),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward and fires every ticker whose deadline has
// passed. Like time.Ticker, a ticker whose reader is behind drops ticks.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	for _, t := range m.tickers {
		for !t.next.After(m.now) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.interval)
		}
	}
}

// Set moves the clock to an absolute time without firing tickers.
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// TickerCount returns the number of tickers that have not been stopped.
func (m *Mock) TickerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

type mockTicker struct {
	mock     *Mock
	c        chan time.Time
	interval time.Duration
	next     time.Time
}

func (t *mockTicker) C() <-chan time.Time { return t.c }

func (t *mockTicker) Stop() {
	m := t.mock
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, other := range m.tickers {
		if other == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}
