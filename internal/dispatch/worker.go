package dispatch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dockhook/dockhook/internal/config"
	"github.com/dockhook/dockhook/internal/logging"
	"github.com/dockhook/dockhook/internal/metrics"
	"github.com/dockhook/dockhook/internal/queue"
	"github.com/dockhook/dockhook/internal/signature"
	"github.com/dockhook/dockhook/internal/subscription"
	"github.com/dockhook/dockhook/internal/tracing"
)

// outcome classification for a single delivery attempt
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeTransient
	outcomePermanent
)

// Pool is a fixed-size pool of delivery workers. Each worker pops ready
// tasks, signs and sends them, requeues transient failures with backoff, and
// reports terminal failures to the observer.
type Pool struct {
	queue    *queue.Queue
	store    subscription.Store
	client   *http.Client
	retry    config.Retry
	count    int
	observer FailureObserver
	logger   *logging.Logger

	wg sync.WaitGroup
}

func NewPool(store subscription.Store, q *queue.Queue, cfg config.Worker, observer FailureObserver) *Pool {
	if observer == nil {
		observer = NopObserver{}
	}
	count := cfg.Count
	if count < 1 {
		count = 1
	}
	return &Pool{
		queue:    q,
		store:    store,
		client:   &http.Client{Timeout: cfg.Retry.AttemptTimeout},
		retry:    cfg.Retry,
		count:    count,
		observer: observer,
		logger:   logging.New("dockhook-worker"),
	}
}

// SetClient swaps the HTTP client, primarily for tests.
func (p *Pool) SetClient(c *http.Client) { p.client = c }

// Start launches the workers. They stop claiming tasks once ctx is canceled;
// an in-flight HTTP call runs to completion or its per-attempt timeout.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(ctx)
		}()
	}
}

// Wait blocks until all workers have exited and returns the number of
// pending tasks abandoned in the queue.
func (p *Pool) Wait() int {
	p.wg.Wait()
	abandoned := p.queue.Len()
	if abandoned > 0 {
		p.logger.Plain().WithField("abandoned", abandoned).Warn("pending tasks abandoned at shutdown")
	}
	return abandoned
}

func (p *Pool) run(ctx context.Context) {
	for {
		t, err := p.queue.PopWait(ctx)
		if err != nil {
			return
		}
		p.deliver(ctx, t)
	}
}

func (p *Pool) deliver(ctx context.Context, t queue.Task) {
	ctx = tracing.ExtractTrace(ctx, t.TraceHeaders)
	ctx, span := tracing.StartSpan(ctx, "worker.delivery",
		attribute.String("task_id", t.TaskID),
		attribute.String("subscription_id", t.SubscriptionID),
		attribute.String("event", t.Event),
		attribute.Int("attempt", t.Attempt),
	)
	defer span.End()

	sub, err := p.store.Get(ctx, t.SubscriptionID)
	if err != nil {
		var nf *subscription.NotFoundError
		if errors.As(err, &nf) {
			// Subscription deleted after enqueue: drop silently, no retry,
			// no observer call.
			tracing.AddSpanEvent(ctx, "delivery.dropped_deleted")
			metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
			p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(t.SubscriptionID).
				Debug("dropping task for deleted subscription")
			return
		}
		// Store unavailable; retry the task like any transient failure.
		tracing.SetSpanError(ctx, err)
		p.handleTransient(ctx, t, nil, err, "store_error")
		return
	}
	if !sub.Enabled {
		tracing.AddSpanEvent(ctx, "delivery.dropped_disabled")
		metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
		p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(sub.ID).
			Debug("dropping task for disabled subscription")
		return
	}

	tracing.AddSpanEvent(ctx, "http.send_webhook")
	resp, latency, doErr := p.send(ctx, sub, t)
	status := 0
	if doErr == nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}

	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Int64("http.latency_ms", latency.Milliseconds()),
	)
	if doErr != nil {
		span.SetAttributes(attribute.String("http.error", doErr.Error()))
	}
	metrics.DeliveryLatency.Observe(latency.Seconds())

	switch classify(doErr, status) {
	case outcomeSuccess:
		tracing.AddSpanEvent(ctx, "delivery.success")
		metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
		p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(sub.ID).WithEvent(t.Event).
			WithFields(map[string]any{"status": status, "attempt": t.Attempt}).
			Info("delivered")

	case outcomePermanent:
		tracing.AddSpanEvent(ctx, "delivery.permanent_failure")
		metrics.DeliveriesTotal.WithLabelValues("permanent").Inc()
		metrics.TerminalFailuresTotal.WithLabelValues(KindPermanent).Inc()
		p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(sub.ID).WithEvent(t.Event).
			WithFields(map[string]any{"status": status, "attempt": t.Attempt}).
			Warn("permanent failure, not retrying")
		p.observer.OnTerminalFailure(ctx, TerminalFailure{
			TaskID:         t.TaskID,
			SubscriptionID: t.SubscriptionID,
			Event:          t.Event,
			Attempts:       t.Attempt,
			Kind:           KindPermanent,
			HTTPStatus:     status,
			LastError:      "http status " + strconv.Itoa(status),
			Task:           t,
		})

	case outcomeTransient:
		p.handleTransient(ctx, t, resp, doErr, classifyReason(doErr, status))
	}
}

// send issues one HTTP POST bounded by the per-attempt timeout. The body is
// the task's payload bytes exactly as serialized at trigger time, so the
// signature always matches what is transmitted.
func (p *Pool) send(ctx context.Context, sub subscription.Subscription, t queue.Task) (*http.Response, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.retry.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(t.Payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.EventHeader, t.Event)
	req.Header.Set(signature.IDHeader, sub.ID)
	if sub.Secret != "" {
		req.Header.Set(signature.SignatureHeader, signature.HeaderValue(t.Payload, sub.Secret))
	}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	start := time.Now()
	resp, doErr := p.client.Do(req)
	return resp, time.Since(start), doErr
}

// handleTransient either reschedules the task with backoff or, when attempts
// are exhausted, reports terminal failure.
func (p *Pool) handleTransient(ctx context.Context, t queue.Task, resp *http.Response, doErr error, reason string) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	metrics.DeliveriesTotal.WithLabelValues("transient").Inc()

	if t.Attempt >= p.retry.MaxAttempts {
		tracing.AddSpanEvent(ctx, "delivery.exhausted", attribute.Int("attempt", t.Attempt))
		metrics.TerminalFailuresTotal.WithLabelValues(KindExhausted).Inc()
		p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(t.SubscriptionID).WithEvent(t.Event).
			WithFields(map[string]any{"attempt": t.Attempt, "status": status}).
			WithError(doErr).
			Error("retries exhausted")
		p.observer.OnTerminalFailure(ctx, TerminalFailure{
			TaskID:         t.TaskID,
			SubscriptionID: t.SubscriptionID,
			Event:          t.Event,
			Attempts:       t.Attempt,
			Kind:           KindExhausted,
			HTTPStatus:     status,
			LastError:      lastError(doErr, status),
			Task:           t,
		})
		return
	}

	now := time.Now().UTC()
	delay, overridden := retryAfterDelay(resp, now, p.retry)
	if !overridden {
		delay = backoffDelay(t.Attempt, p.retry)
	}

	metrics.RetriesTotal.WithLabelValues(reason).Inc()
	tracing.AddSpanEvent(ctx, "delivery.requeue",
		attribute.Int("attempt", t.Attempt+1),
		attribute.String("delay", delay.String()),
	)
	p.logger.WithContext(ctx).WithTask(t.TaskID).WithSubscription(t.SubscriptionID).WithEvent(t.Event).
		WithFields(map[string]any{
			"attempt": t.Attempt + 1,
			"delay":   delay.String(),
			"reason":  reason,
		}).
		Info("requeue delivery")

	t.Attempt++
	t.NextAttemptAt = now.Add(delay)
	p.queue.Push(t)
}

// classify maps an attempt result to its outcome class: 2xx success, 4xx
// (except 429) permanent, everything else transient.
func classify(doErr error, status int) outcome {
	if doErr != nil {
		return outcomeTransient
	}
	switch {
	case status >= 200 && status < 300:
		return outcomeSuccess
	case status == http.StatusTooManyRequests:
		return outcomeTransient
	case status >= 400 && status < 500:
		return outcomePermanent
	default:
		return outcomeTransient
	}
}

// classifyReason labels a transient failure for the retry metrics.
func classifyReason(doErr error, status int) string {
	if doErr != nil {
		if errors.Is(doErr, context.DeadlineExceeded) {
			return "timeout"
		}
		return "network"
	}
	if status >= 500 {
		return "http_5xx"
	}
	if status == http.StatusTooManyRequests {
		return "http_429"
	}
	return "other"
}

func lastError(doErr error, status int) string {
	if doErr != nil {
		return doErr.Error()
	}
	return "http status " + strconv.Itoa(status)
}
