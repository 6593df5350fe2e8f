package types

// ------------------------
// Capability status (retained)
// ------------------------

// Link is the link/state reported for a capability.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"` // errcode string
}

// ------------------------
// Capability kinds
// ------------------------

type Kind string

const (
	KindMotor Kind = "motor"
)

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ValueReply carries the result of a query verb.
type ValueReply struct {
	OK    bool `json:"ok"`
	Value any  `json:"value"`
}
