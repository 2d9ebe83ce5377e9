// Package venue provides the exchange-facing side of the gateway. The only
// implementation here is a simulator; a real venue adapter would satisfy the
// same order.Sender contract.
package venue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"order-gateway/internal/order"
)

// MockConfig tunes the simulated venue.
type MockConfig struct {
	LatencyMinMs int
	LatencyMaxMs int
	RejectRate   float64 // 0..1, chance a well-formed order is rejected anyway
}

// Mock simulates an exchange: it sleeps for a round trip, rejects malformed
// orders, and accepts the rest (minus the configured reject rate).
type Mock struct {
	cfg MockConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMock creates a simulator. Swapped latency bounds are normalized.
func NewMock(cfg MockConfig) *Mock {
	if cfg.LatencyMinMs < 0 {
		cfg.LatencyMinMs = 0
	}
	if cfg.LatencyMaxMs < cfg.LatencyMinMs {
		cfg.LatencyMinMs, cfg.LatencyMaxMs = cfg.LatencyMaxMs, cfg.LatencyMinMs
	}
	return &Mock{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Send simulates transmission and the exchange's verdict. The sleep is
// cancellable so shutdown does not hang on in-flight round trips.
func (m *Mock) Send(ctx context.Context, o order.Order) (order.Response, error) {
	delay := m.latency()
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return order.Response{}, ctx.Err()
		case <-timer.C:
		}
	}

	return order.Response{Verdict: m.verdict(o), At: time.Now()}, nil
}

func (m *Mock) latency() time.Duration {
	span := m.cfg.LatencyMaxMs - m.cfg.LatencyMinMs
	ms := m.cfg.LatencyMinMs
	if span > 0 {
		m.mu.Lock()
		ms += m.rng.Intn(span + 1)
		m.mu.Unlock()
	}
	return time.Duration(ms) * time.Millisecond
}

// verdict rejects malformed traffic the way a real venue would; the gateway
// forwards such orders rather than second-guessing the exchange.
func (m *Mock) verdict(o order.Order) order.Verdict {
	if o.Side != order.SideBuy && o.Side != order.SideSell {
		return order.VerdictReject
	}
	if o.Qty <= 0 || o.Price <= 0 {
		return order.VerdictReject
	}
	if m.cfg.RejectRate > 0 {
		m.mu.Lock()
		r := m.rng.Float64()
		m.mu.Unlock()
		if r < m.cfg.RejectRate {
			return order.VerdictReject
		}
	}
	return order.VerdictAccept
}

var _ order.Sender = (*Mock)(nil)
