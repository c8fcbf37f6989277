package dispatch

import (
	"context"

	"github.com/dockhook/dockhook/internal/queue"
)

// Failure kinds reported to observers.
const (
	KindPermanent = "permanent" // 4xx (except 429), never retried
	KindExhausted = "exhausted" // transient failures until maxAttempts
)

// TerminalFailure describes a delivery task that will never be attempted
// again. Exactly one is reported per task that exhausts its retries or hits a
// permanent-failure status.
type TerminalFailure struct {
	TaskID         string
	SubscriptionID string
	Event          string
	Attempts       int
	Kind           string
	HTTPStatus     int
	LastError      string
	Task           queue.Task
}

// FailureObserver receives terminal delivery failures. Trigger callers never
// see delivery outcomes synchronously; this is the only visibility channel.
type FailureObserver interface {
	OnTerminalFailure(ctx context.Context, f TerminalFailure)
}

// FailureObserverFunc adapts a function to the FailureObserver interface.
type FailureObserverFunc func(ctx context.Context, f TerminalFailure)

func (fn FailureObserverFunc) OnTerminalFailure(ctx context.Context, f TerminalFailure) {
	fn(ctx, f)
}

// MultiObserver fans a terminal failure out to every registered observer.
type MultiObserver []FailureObserver

func (m MultiObserver) OnTerminalFailure(ctx context.Context, f TerminalFailure) {
	for _, o := range m {
		o.OnTerminalFailure(ctx, f)
	}
}

// NopObserver discards terminal failures.
type NopObserver struct{}

func (NopObserver) OnTerminalFailure(context.Context, TerminalFailure) {}
