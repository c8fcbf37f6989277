package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/dockhook/dockhook/internal/dispatch"
	"github.com/dockhook/dockhook/internal/logging"
	"github.com/dockhook/dockhook/internal/metrics"
	"github.com/dockhook/dockhook/internal/queue"
)

const EnvelopeType = "delivery.dead_letter"

// Envelope is the wire format published to the dead-letter topic for every
// terminally failed delivery.
type Envelope struct {
	Type           string     `json:"type"`    // "delivery.dead_letter"
	Version        string     `json:"version"` // schema version
	At             string     `json:"at"`      // RFC3339 time the envelope was emitted
	Kind           string     `json:"kind"`    // permanent | exhausted
	TaskID         string     `json:"task_id"`
	SubscriptionID string     `json:"subscription_id"`
	Event          string     `json:"event"`
	Attempts       int        `json:"attempts"`
	HTTPStatus     int        `json:"http_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	Task           queue.Task `json:"task"` // full delivery snapshot
}

func NewEnvelope(f dispatch.TerminalFailure) Envelope {
	return Envelope{
		Type:           EnvelopeType,
		Version:        "v1",
		At:             time.Now().Format(time.RFC3339Nano),
		Kind:           f.Kind,
		TaskID:         f.TaskID,
		SubscriptionID: f.SubscriptionID,
		Event:          f.Event,
		Attempts:       f.Attempts,
		HTTPStatus:     f.HTTPStatus,
		LastError:      f.LastError,
		Task:           f.Task,
	}
}

// Publisher publishes terminal failures to an NSQ dead-letter topic. It
// implements dispatch.FailureObserver, so downstream consumers can replay or
// alert on dead deliveries.
type Publisher struct {
	producer *nsq.Producer
	topic    string
	logger   *logging.Logger
}

func NewPublisher(nsqdAddr, topic string) (*Publisher, error) {
	producer, err := nsq.NewProducer(nsqdAddr, nsq.NewConfig())
	if err != nil {
		return nil, err
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logging.New("dockhook-deadletter"),
	}, nil
}

func (p *Publisher) OnTerminalFailure(ctx context.Context, f dispatch.TerminalFailure) {
	env := NewEnvelope(f)
	b, err := json.Marshal(env)
	if err != nil {
		p.logger.WithContext(ctx).WithTask(f.TaskID).WithError(err).Error("dead letter marshal failed")
		return
	}
	if err := p.producer.Publish(p.topic, b); err != nil {
		p.logger.WithContext(ctx).WithTask(f.TaskID).WithError(err).Error("dead letter publish failed")
		return
	}
	metrics.DeadLettersTotal.Inc()
	p.logger.WithContext(ctx).WithTask(f.TaskID).WithSubscription(f.SubscriptionID).WithEvent(f.Event).
		WithField("topic", p.topic).
		Info("dead letter published")
}

// Stop flushes and shuts down the underlying producer.
func (p *Publisher) Stop() {
	p.producer.Stop()
}
