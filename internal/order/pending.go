package order

import (
	"container/list"
	"fmt"
	"sync"
)

// PendingQueue holds orders admitted by the session check but deferred by
// the throttle. FIFO order is kept in a list; a map index keyed by order ID
// gives O(1) modify/cancel. One mutex guards every operation, so a caller
// racing the dispatcher's drain always observes a consistent queue.
type PendingQueue struct {
	mu    sync.Mutex
	fifo  *list.List              // of *Order
	index map[int64]*list.Element // order ID -> element in fifo
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{
		fifo:  list.New(),
		index: make(map[int64]*list.Element),
	}
}

// Enqueue appends an order. Duplicate IDs are a caller bug while the first
// order is still queued.
func (q *PendingQueue) Enqueue(o Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[o.ID]; ok {
		return fmt.Errorf("order %d already queued", o.ID)
	}
	o.Status = StatusQueued
	q.index[o.ID] = q.fifo.PushBack(&o)
	return nil
}

// Modify updates price and quantity in place, keeping the order's queue
// position. Returns false when the ID is not queued (already dispatched,
// cancelled, or never existed).
func (q *PendingQueue) Modify(id int64, price, qty float64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.index[id]
	if !ok {
		return false
	}
	o := el.Value.(*Order)
	o.Price = price
	o.Qty = qty
	return true
}

// Cancel removes the order. Returns false when the ID is not queued.
func (q *PendingQueue) Cancel(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	el, ok := q.index[id]
	if !ok {
		return false
	}
	q.fifo.Remove(el)
	delete(q.index, id)
	return true
}

// DrainAdmissible pulls orders in FIFO order while the gate admits them,
// removing each pulled order. It stops at the first denial so a later order
// never jumps ahead of an earlier one still blocked.
func (q *PendingQueue) DrainAdmissible(gate Admitter) []Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	var drained []Order
	for {
		front := q.fifo.Front()
		if front == nil {
			break
		}
		if !gate.TryAdmit() {
			break
		}
		o := front.Value.(*Order)
		q.fifo.Remove(front)
		delete(q.index, o.ID)
		drained = append(drained, *o)
	}
	return drained
}

// Len returns the number of queued orders.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fifo.Len()
}

// Snapshot returns a copy of the queue contents in FIFO order.
func (q *PendingQueue) Snapshot() []Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Order, 0, q.fifo.Len())
	for el := q.fifo.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value.(*Order))
	}
	return out
}
