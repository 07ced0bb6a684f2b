package audit

import "time"

// Outcome represents the result of a recorded tool invocation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// TopicInvocation is the eventbus topic the dispatch layer publishes to.
const TopicInvocation = "tool.invoked"

// Invocation is a single invocation-log entry. Append-only: once recorded it
// is never modified. Only bookkeeping is stored — never response bodies, so
// the log cannot act as a response cache.
type Invocation struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Resource   string    `json:"resource"`
	Outcome    Outcome   `json:"outcome"`
	ErrorCode  *string   `json:"error_code,omitempty"`
	ItemCount  int       `json:"item_count"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
