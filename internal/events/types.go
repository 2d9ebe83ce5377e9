package events

// Event enumerates high-level topics inside the gateway.
type Event string

const (
	EventSessionLogon  Event = "session.logon"
	EventSessionLogout Event = "session.logout"
	EventOrderQueued   Event = "order.queued"
	EventOrderSent     Event = "order.sent"
	EventOrderModified Event = "order.modified"
	EventOrderCancelled Event = "order.cancelled"
	EventOrderRejected Event = "order.rejected"
	EventOrderResponse Event = "order.response"
)
