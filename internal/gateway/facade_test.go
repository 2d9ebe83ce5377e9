package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"order-gateway/internal/events"
	"order-gateway/internal/monitor"
	"order-gateway/internal/order"
	"order-gateway/internal/session"
	"order-gateway/internal/throttle"
)

type captureSender struct {
	mu   sync.Mutex
	sent []order.Order
}

func (s *captureSender) Send(_ context.Context, o order.Order) (order.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, o)
	return order.Response{Verdict: order.VerdictAccept, At: time.Now()}, nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type captureRecorder struct {
	mu   sync.Mutex
	recs []order.ResponseRecord
}

func (r *captureRecorder) Record(_ context.Context, rec order.ResponseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

type fixture struct {
	facade     *Facade
	dispatcher *order.Dispatcher
	pending    *order.PendingQueue
	sender     *captureSender
	recorder   *captureRecorder
	metrics    *monitor.Metrics
}

// newFixture builds a facade over a window that is either always open for
// the rest of the day or already closed, with the given throttle cap over a
// long interval so the cap never resets mid-test.
func newFixture(t *testing.T, cap int, open bool) *fixture {
	t.Helper()

	w := session.Window{Open: 0, Close: 24 * time.Hour}
	if !open {
		w = session.Window{Open: 0, Close: time.Nanosecond}
	}
	bus := events.NewBus()
	sess := session.NewController(w, "testuser", bus, time.Millisecond)
	sess.Check()

	pending := order.NewPendingQueue()
	sender := &captureSender{}
	recorder := &captureRecorder{}
	metrics := monitor.NewMetrics()
	gate := throttle.New(cap, time.Minute)
	d := order.NewDispatcher(gate, pending, sender, recorder, bus, metrics, time.Millisecond)

	return &fixture{
		facade:     New(sess, d, pending, bus, metrics),
		dispatcher: d,
		pending:    pending,
		sender:     sender,
		recorder:   recorder,
		metrics:    metrics,
	}
}

func TestNewOrderWhileOpen(t *testing.T) {
	fx := newFixture(t, 3, true)
	ctx := context.Background()

	res := fx.facade.NewOrder(ctx, order.Order{ID: 1001, Symbol: "BTCUSDT", Side: order.SideBuy, Price: 100, Qty: 10})
	if res.Status != order.StatusSent {
		t.Fatalf("status=%s, expected SENT", res.Status)
	}
	fx.dispatcher.Wait()
	if fx.recorder.count() != 1 {
		t.Fatalf("got %d records, expected exactly one", fx.recorder.count())
	}
}

func TestNewOrderOutsideWindowRejected(t *testing.T) {
	fx := newFixture(t, 3, false)
	ctx := context.Background()

	if got := fx.facade.Phase(); got != session.PhaseClosed {
		t.Fatalf("phase=%v, fixture should start closed", got)
	}

	res := fx.facade.NewOrder(ctx, order.Order{ID: 3000, Symbol: "BTCUSDT", Side: order.SideSell, Price: 300, Qty: 1})
	if res.Status != order.StatusRejected {
		t.Fatalf("status=%s, expected REJECTED", res.Status)
	}
	if res.Reason != ReasonNotInWindow {
		t.Fatalf("reason=%q, expected %q", res.Reason, ReasonNotInWindow)
	}

	fx.dispatcher.Wait()
	if fx.sender.count() != 0 {
		t.Fatal("rejected order must not reach the sender")
	}
	if fx.recorder.count() != 0 {
		t.Fatal("rejected order must not produce a response record")
	}
	if fx.pending.Len() != 0 {
		t.Fatal("rejected order must not be queued")
	}
}

func TestBurstQueuesBeyondCap(t *testing.T) {
	fx := newFixture(t, 3, true)
	ctx := context.Background()

	var results []Result
	for i := int64(0); i < 5; i++ {
		results = append(results, fx.facade.NewOrder(ctx, order.Order{
			ID: 1000 + i, Symbol: "BTCUSDT", Side: order.SideBuy, Price: 100 + float64(i), Qty: 10 + float64(i),
		}))
	}

	sent, queued := 0, 0
	for _, r := range results {
		switch r.Status {
		case order.StatusSent:
			sent++
		case order.StatusQueued:
			queued++
		}
	}
	if sent != 3 || queued != 2 {
		t.Fatalf("sent=%d queued=%d, expected 3/2", sent, queued)
	}

	snap := fx.metrics.Snapshot()
	if snap.Submitted != 5 || snap.Sent != 3 || snap.Queued != 2 {
		t.Fatalf("metrics wrong: %+v", snap)
	}
}

func TestModifyAndCancelLifecycle(t *testing.T) {
	fx := newFixture(t, 1, true)
	ctx := context.Background()

	fx.facade.NewOrder(ctx, order.Order{ID: 1, Side: order.SideBuy, Price: 100, Qty: 10})  // sent
	fx.facade.NewOrder(ctx, order.Order{ID: 2, Side: order.SideBuy, Price: 101, Qty: 11})  // queued
	fx.facade.NewOrder(ctx, order.Order{ID: 3, Side: order.SideSell, Price: 102, Qty: 12}) // queued

	if res := fx.facade.ModifyOrder(ctx, 2, 105.5, 99); res.Status != order.StatusModified {
		t.Fatalf("modify result: %+v", res)
	}
	if res := fx.facade.CancelOrder(ctx, 3); res.Status != order.StatusCancelled {
		t.Fatalf("cancel result: %+v", res)
	}

	// Stale references are ignored no-ops, repeatably.
	for i := 0; i < 2; i++ {
		res := fx.facade.ModifyOrder(ctx, 9999, 111.1, 1)
		if !res.Ignored || res.Reason != "Modify request for 9999 ignored: not in queue" {
			t.Fatalf("stale modify result: %+v", res)
		}
	}
	if res := fx.facade.CancelOrder(ctx, 3); !res.Ignored {
		t.Fatalf("second cancel should be ignored: %+v", res)
	}
	if res := fx.facade.CancelOrder(ctx, 8888); !res.Ignored || res.Reason != "Cancel request for 8888 ignored: not in queue" {
		t.Fatalf("stale cancel result: %+v", res)
	}

	pending := fx.facade.Pending()
	if len(pending) != 1 || pending[0].ID != 2 || pending[0].Price != 105.5 {
		t.Fatalf("pending snapshot wrong: %+v", pending)
	}
}

func TestGatewayAssignsIDs(t *testing.T) {
	fx := newFixture(t, 10, true)
	ctx := context.Background()

	a := fx.facade.NewOrder(ctx, order.Order{Side: order.SideBuy, Price: 100, Qty: 10})
	b := fx.facade.NewOrder(ctx, order.Order{Side: order.SideBuy, Price: 100, Qty: 10})
	if a.OrderID == 0 || b.OrderID == 0 {
		t.Fatalf("ids not assigned: %+v %+v", a, b)
	}
	if a.OrderID == b.OrderID {
		t.Fatalf("assigned ids collide: %d", a.OrderID)
	}
}

func TestDuplicateQueuedIDRejected(t *testing.T) {
	fx := newFixture(t, 1, true)
	ctx := context.Background()

	fx.facade.NewOrder(ctx, order.Order{ID: 1, Side: order.SideBuy, Price: 100, Qty: 10}) // consumes cap
	if res := fx.facade.NewOrder(ctx, order.Order{ID: 6000, Side: order.SideBuy, Price: 100, Qty: 10}); res.Status != order.StatusQueued {
		t.Fatalf("first 6000 should queue, got %+v", res)
	}
	res := fx.facade.NewOrder(ctx, order.Order{ID: 6000, Side: order.SideSell, Price: 200, Qty: 20})
	if res.Status != order.StatusRejected {
		t.Fatalf("duplicate queued id should reject, got %+v", res)
	}
}
