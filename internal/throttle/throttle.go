// Package throttle paces outbound dispatch to a fixed number of orders per
// interval.
package throttle

import (
	"sync"
	"time"
)

// Gate counts orders admitted within the current interval. Admission is
// non-blocking: callers decide what to do with a denial.
type Gate struct {
	cap      int
	interval time.Duration

	mu            sync.Mutex
	count         int
	intervalStart time.Time

	now func() time.Time // injectable for tests
}

// New creates a gate admitting up to cap orders per interval.
// interval <= 0 defaults to one second.
func New(cap int, interval time.Duration) *Gate {
	if cap <= 0 {
		cap = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	g := &Gate{cap: cap, interval: interval, now: time.Now}
	g.intervalStart = g.now()
	return g
}

// TryAdmit consumes one slot iff the current interval has capacity. The
// interval is rolled lazily at its boundary, so the count resets exactly
// once per elapsed interval regardless of caller cadence.
func (g *Gate) TryAdmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.roll()
	if g.count >= g.cap {
		return false
	}
	g.count++
	return true
}

// Usage returns the slots consumed in the current interval and the cap.
func (g *Gate) Usage() (used, cap int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll()
	return g.count, g.cap
}

// UntilReset returns the time remaining until the next interval boundary.
func (g *Gate) UntilReset() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll()
	d := g.interval - g.now().Sub(g.intervalStart)
	if d < 0 {
		return 0
	}
	return d
}

// roll advances intervalStart and zeroes the count once the boundary has
// passed. Callers must hold g.mu.
func (g *Gate) roll() {
	elapsed := g.now().Sub(g.intervalStart)
	if elapsed < g.interval {
		return
	}
	steps := elapsed / g.interval
	g.intervalStart = g.intervalStart.Add(steps * g.interval)
	g.count = 0
}
