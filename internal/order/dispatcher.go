package order

import (
	"context"
	"log"
	"sync"
	"time"

	"order-gateway/internal/events"
	"order-gateway/internal/monitor"
)

// Dispatcher owns the path from admission to the venue: the immediate-send
// attempt for fresh orders and the periodic backlog drain. It keeps no order
// state of its own; the pending queue holds deferred orders and every send
// ends in exactly one recorder write.
type Dispatcher struct {
	gate     Admitter
	pending  *PendingQueue
	sender   Sender
	recorder Recorder
	bus      *events.Bus
	metrics  *monitor.Metrics
	tick     time.Duration

	wg sync.WaitGroup
}

// NewDispatcher wires the dispatcher. tick <= 0 defaults to 20ms.
func NewDispatcher(gate Admitter, pending *PendingQueue, sender Sender, recorder Recorder, bus *events.Bus, metrics *monitor.Metrics, tick time.Duration) *Dispatcher {
	if tick <= 0 {
		tick = 20 * time.Millisecond
	}
	return &Dispatcher{
		gate:     gate,
		pending:  pending,
		sender:   sender,
		recorder: recorder,
		bus:      bus,
		metrics:  metrics,
		tick:     tick,
	}
}

// Submit handles a fresh, session-admitted order: send now if the throttle
// has capacity, otherwise queue it. Returns the resulting status.
func (d *Dispatcher) Submit(ctx context.Context, o Order) (Status, error) {
	if d.gate.TryAdmit() {
		d.send(ctx, o)
		return StatusSent, nil
	}

	if err := d.pending.Enqueue(o); err != nil {
		return StatusRejected, err
	}
	if d.metrics != nil {
		d.metrics.IncQueued()
	}
	if d.bus != nil {
		d.bus.Publish(events.EventOrderQueued, o)
	}
	log.Printf("order %d queued due to throttle", o.ID)
	return StatusQueued, nil
}

// Run flushes the backlog once per tick until ctx is cancelled, then waits
// for in-flight sends to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case <-ticker.C:
			d.Drain(ctx)
		}
	}
}

// Drain pulls every currently admissible order out of the queue and sends
// it. Exposed for tests and for a final flush on shutdown.
func (d *Dispatcher) Drain(ctx context.Context) {
	for _, o := range d.pending.DrainAdmissible(d.gate) {
		d.send(ctx, o)
	}
}

// Wait blocks until all in-flight sends have completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// send transmits asynchronously. The throttle slot was already consumed by
// the caller.
func (d *Dispatcher) send(ctx context.Context, o Order) {
	o.Status = StatusSent
	if d.metrics != nil {
		d.metrics.IncSent()
	}
	if d.bus != nil {
		d.bus.Publish(events.EventOrderSent, o)
	}
	log.Printf("order %d sent to exchange", o.ID)

	// The send outlives the submitting call (an HTTP request, typically), so
	// detach from its cancellation while keeping its values.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		start := time.Now()
		resp, err := d.sender.Send(ctx, o)
		latency := time.Since(start)

		if err != nil {
			log.Printf("order %d send failed: %v", o.ID, err)
			resp = Response{Verdict: VerdictReject, At: time.Now()}
		}
		if resp.At.IsZero() {
			resp.At = time.Now()
		}

		rec := ResponseRecord{
			OrderID: o.ID,
			Verdict: resp.Verdict,
			Latency: latency,
			At:      resp.At,
		}
		if d.metrics != nil {
			d.metrics.RecordVerdict(resp.Verdict == VerdictAccept)
			d.metrics.SendLatency.RecordDuration(latency)
		}
		if d.recorder != nil {
			if err := d.recorder.Record(ctx, rec); err != nil {
				log.Printf("record response for order %d: %v", o.ID, err)
			}
		}
		if d.bus != nil {
			d.bus.Publish(events.EventOrderResponse, rec)
		}
	}()
}
