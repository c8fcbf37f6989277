package queue

import (
	"encoding/json"
	"time"
)

// Task is a single pending delivery attempt. The payload is the exact byte
// serialization produced at trigger time; it is signed and transmitted as-is.
type Task struct {
	TaskID         string            `json:"task_id"`
	SubscriptionID string            `json:"subscription_id"`
	Event          string            `json:"event"`
	Payload        json.RawMessage   `json:"payload"`
	Attempt        int               `json:"attempt"` // 1-based
	NextAttemptAt  time.Time         `json:"next_attempt_at"`
	CreatedAt      time.Time         `json:"created_at"`
	TraceHeaders   map[string]string `json:"trace_headers,omitempty"` // OTel trace propagation
}
