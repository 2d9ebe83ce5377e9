package db

import "time"

// ResponseRecord is one exchange response, append-only.
type ResponseRecord struct {
	ID        string
	OrderID   int64
	Verdict   string
	LatencyMs float64
	CreatedAt time.Time
}

// SessionEvent records a logon or logout transition.
type SessionEvent struct {
	ID        string
	Kind      string // "LOGON" or "LOGOUT"
	Username  string
	CreatedAt time.Time
}
