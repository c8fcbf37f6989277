package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dockhook/dockhook/internal/logging"
	"github.com/dockhook/dockhook/internal/metrics"
	"github.com/dockhook/dockhook/internal/queue"
	"github.com/dockhook/dockhook/internal/subscription"
	"github.com/dockhook/dockhook/internal/tracing"
)

// Router fans a triggered event out to every matching enabled subscription,
// one delivery task per match. Triggering is fire-and-forget: it returns as
// soon as the tasks are enqueued.
type Router struct {
	store  subscription.Store
	queue  *queue.Queue
	logger *logging.Logger
}

func NewRouter(store subscription.Store, q *queue.Queue) *Router {
	return &Router{
		store:  store,
		queue:  q,
		logger: logging.New("dockhook-router"),
	}
}

// Trigger serializes the payload once and enqueues a task with attempt=1 for
// every enabled subscription whose events set contains event (case-sensitive
// exact match). Returns the number of tasks enqueued; zero matches is not an
// error.
func (r *Router) Trigger(ctx context.Context, event string, payload any) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "router.trigger",
		attribute.String("event", event),
	)
	defer span.End()

	body, err := marshalPayload(payload)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return 0, fmt.Errorf("invalid payload: %w", err)
	}

	subs, err := r.store.List(ctx)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}

	now := time.Now().UTC()
	traceHeaders := tracing.PropagateTrace(ctx)

	enqueued := 0
	for _, sub := range subs {
		if !sub.Matches(event) {
			continue
		}
		t := queue.Task{
			TaskID:         uuid.NewString(),
			SubscriptionID: sub.ID,
			Event:          event,
			Payload:        body,
			Attempt:        1,
			NextAttemptAt:  now,
			CreatedAt:      now,
			TraceHeaders:   traceHeaders,
		}
		r.queue.Push(t)
		enqueued++
		metrics.TasksEnqueuedTotal.Inc()
	}

	metrics.EventsTriggeredTotal.WithLabelValues(event).Inc()
	span.SetAttributes(attribute.Int("fanout_count", enqueued))

	r.logger.WithContext(ctx).WithEvent(event).
		WithField("enqueued", enqueued).
		Debug("event triggered")

	return enqueued, nil
}

// marshalPayload serializes the trigger payload exactly once. Raw JSON passes
// through untouched so the bytes signed and sent are the caller's bytes.
func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		return json.Marshal(payload)
	}
}
