// Package session tracks the trading window and the gateway's logon state.
package session

import (
	"context"
	"sync"
	"time"

	"order-gateway/internal/events"
)

// Phase is the gateway's position relative to the trading window.
type Phase int

const (
	PhaseBeforeOpen Phase = iota
	PhaseOpen
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseBeforeOpen:
		return "BEFORE_OPEN"
	case PhaseOpen:
		return "OPEN"
	case PhaseClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Window is the configured open/close pair, as offsets from midnight.
// Close must be after Open; config validation enforces that before the
// controller ever sees a window.
type Window struct {
	Open  time.Duration
	Close time.Duration
}

// Contains reports whether the time of day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	tod := timeOfDay(t)
	return tod >= w.Open && tod < w.Close
}

// Transition is the payload published on logon/logout events.
type Transition struct {
	Kind     string // "LOGON" or "LOGOUT"
	Username string
	At       time.Time
}

// Controller polls the clock against the window and drives the single
// BeforeOpen -> Open -> Closed chain. One session per run: once Closed, the
// gateway never reopens.
type Controller struct {
	window   Window
	username string
	bus      *events.Bus
	poll     time.Duration

	mu    sync.Mutex
	phase Phase

	now func() time.Time // injectable for tests
}

// NewController creates a controller polling at the given interval.
func NewController(w Window, username string, bus *events.Bus, poll time.Duration) *Controller {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	return &Controller{
		window:   w,
		username: username,
		bus:      bus,
		poll:     poll,
		phase:    PhaseBeforeOpen,
		now:      time.Now,
	}
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LoggedIn reports whether new orders are currently admitted.
func (c *Controller) LoggedIn() bool {
	return c.Phase() == PhaseOpen
}

// Run polls until ctx is cancelled. Transition exactness is bounded by the
// poll interval.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	c.Check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check()
		}
	}
}

// Check performs a single transition step against the current clock.
func (c *Controller) Check() {
	now := c.now()
	tod := timeOfDay(now)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseBeforeOpen:
		if tod >= c.window.Close {
			// Started after the window already ended; never log on.
			c.phase = PhaseClosed
			return
		}
		if tod >= c.window.Open {
			c.phase = PhaseOpen
			c.publish(events.EventSessionLogon, "LOGON", now)
		}
	case PhaseOpen:
		if tod >= c.window.Close || tod < c.window.Open {
			c.phase = PhaseClosed
			c.publish(events.EventSessionLogout, "LOGOUT", now)
		}
	}
}

func (c *Controller) publish(e events.Event, kind string, at time.Time) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(e, Transition{Kind: kind, Username: c.username, At: at})
}

func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
