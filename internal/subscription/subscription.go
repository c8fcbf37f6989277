package subscription

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Subscription is a registered webhook target. The secret is write-once at
// registration; deliveries to subscriptions without a secret go unsigned.
type Subscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Matches reports whether the subscription should receive the given event.
// Matching is case-sensitive exact string match.
func (s Subscription) Matches(event string) bool {
	if !s.Enabled {
		return false
	}
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// ValidationError reports bad registration input, surfaced synchronously.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown subscription ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subscription %s not found", e.ID)
}

// Store is the persistence contract for subscriptions. Mutations to the same
// ID are serialized by implementations; reads return copies.
type Store interface {
	Register(ctx context.Context, url string, events []string, secret string, enabled bool) (Subscription, error)
	Get(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context) ([]Subscription, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (Subscription, error)
}

// validate checks registration input shared by all store implementations.
func validate(rawURL string, events []string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Reason: "must not be empty"}
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if len(events) == 0 {
		return &ValidationError{Field: "events", Reason: "must not be empty"}
	}
	for _, e := range events {
		if e == "" {
			return &ValidationError{Field: "events", Reason: "event names must not be empty"}
		}
	}
	return nil
}
