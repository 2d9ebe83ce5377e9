package order

import (
	"context"
	"time"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "S"
)

// Status tracks an order through the gateway.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusQueued    Status = "QUEUED"
	StatusSent      Status = "SENT"
	StatusModified  Status = "MODIFIED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

// Order is a client order request as the gateway tracks it. The pending
// queue owns an order while it is queued; once sent, ownership moves to the
// dispatcher and the queue forgets it.
type Order struct {
	ID          int64
	Symbol      string
	Side        Side
	Price       float64
	Qty         float64
	SubmittedAt time.Time
	Status      Status
}

// Verdict is the exchange's answer to a sent order.
type Verdict string

const (
	VerdictAccept Verdict = "Accept"
	VerdictReject Verdict = "Reject"
)

// Response is what the venue returns for one sent order.
type Response struct {
	Verdict Verdict
	At      time.Time
}

// Sender transmits an order to the venue. Implementations must be safe to
// call from the dispatcher's goroutines.
type Sender interface {
	Send(ctx context.Context, o Order) (Response, error)
}

// ResponseRecord is the audit entry produced once per order that reached
// the venue.
type ResponseRecord struct {
	OrderID int64
	Verdict Verdict
	Latency time.Duration
	At      time.Time
}

// Recorder persists response records. It must not block the dispatcher for
// unbounded time.
type Recorder interface {
	Record(ctx context.Context, rec ResponseRecord) error
}

// Admitter gates outbound sends. Satisfied by throttle.Gate.
type Admitter interface {
	TryAdmit() bool
}
