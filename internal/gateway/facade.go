// Package gateway is the order management facade: the single entry point
// for new/modify/cancel requests. It consults the session controller for
// admission and hands admitted orders to the dispatcher; modify and cancel
// act on the pending queue only.
package gateway

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"order-gateway/internal/events"
	"order-gateway/internal/monitor"
	"order-gateway/internal/order"
	"order-gateway/internal/session"
)

// ReasonNotInWindow is reported for orders arriving outside the session.
const ReasonNotInWindow = "Not in allowed time window"

// Result is the caller-facing outcome of a facade call.
type Result struct {
	OrderID int64        `json:"order_id"`
	Status  order.Status `json:"status"`
	Ignored bool         `json:"ignored,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}

// Facade routes order management calls.
type Facade struct {
	session    *session.Controller
	dispatcher *order.Dispatcher
	pending    *order.PendingQueue
	bus        *events.Bus
	metrics    *monitor.Metrics

	nextID atomic.Int64
}

// New wires the facade. bus and metrics may be nil.
func New(sess *session.Controller, dispatcher *order.Dispatcher, pending *order.PendingQueue, bus *events.Bus, metrics *monitor.Metrics) *Facade {
	return &Facade{
		session:    sess,
		dispatcher: dispatcher,
		pending:    pending,
		bus:        bus,
		metrics:    metrics,
	}
}

// NewOrder admits, dispatches, or rejects a fresh order. Orders arriving
// with ID 0 get a gateway-assigned identifier.
func (f *Facade) NewOrder(ctx context.Context, o order.Order) Result {
	if o.ID == 0 {
		o.ID = f.nextID.Add(1)
	}
	o.SubmittedAt = time.Now()
	o.Status = order.StatusNew

	if f.metrics != nil {
		f.metrics.IncSubmitted()
	}

	if !f.session.LoggedIn() {
		if f.metrics != nil {
			f.metrics.IncRejected()
		}
		if f.bus != nil {
			f.bus.Publish(events.EventOrderRejected, o)
		}
		log.Printf("order %d rejected: %s", o.ID, ReasonNotInWindow)
		return Result{OrderID: o.ID, Status: order.StatusRejected, Reason: ReasonNotInWindow}
	}

	status, err := f.dispatcher.Submit(ctx, o)
	if err != nil {
		if f.metrics != nil {
			f.metrics.IncRejected()
		}
		log.Printf("order %d rejected: %v", o.ID, err)
		return Result{OrderID: o.ID, Status: order.StatusRejected, Reason: err.Error()}
	}
	return Result{OrderID: o.ID, Status: status}
}

// ModifyOrder updates a queued order's price and quantity in place. A miss
// is an ignored no-op, never a fault.
func (f *Facade) ModifyOrder(_ context.Context, id int64, price, qty float64) Result {
	if !f.pending.Modify(id, price, qty) {
		reason := fmt.Sprintf("Modify request for %d ignored: not in queue", id)
		log.Print(reason)
		return Result{OrderID: id, Ignored: true, Reason: reason}
	}
	if f.metrics != nil {
		f.metrics.IncModified()
	}
	if f.bus != nil {
		f.bus.Publish(events.EventOrderModified, order.Order{ID: id, Price: price, Qty: qty})
	}
	log.Printf("order %d modified in queue", id)
	return Result{OrderID: id, Status: order.StatusModified}
}

// CancelOrder removes a queued order. A miss is an ignored no-op.
func (f *Facade) CancelOrder(_ context.Context, id int64) Result {
	if !f.pending.Cancel(id) {
		reason := fmt.Sprintf("Cancel request for %d ignored: not in queue", id)
		log.Print(reason)
		return Result{OrderID: id, Ignored: true, Reason: reason}
	}
	if f.metrics != nil {
		f.metrics.IncCancelled()
	}
	if f.bus != nil {
		f.bus.Publish(events.EventOrderCancelled, order.Order{ID: id})
	}
	log.Printf("order %d cancelled from queue", id)
	return Result{OrderID: id, Status: order.StatusCancelled}
}

// Pending returns a snapshot of the queued orders in FIFO order.
func (f *Facade) Pending() []order.Order {
	return f.pending.Snapshot()
}

// Phase exposes the current session phase.
func (f *Facade) Phase() session.Phase {
	return f.session.Phase()
}
