package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhook_events_triggered_total",
			Help: "Total number of triggered events by event name.",
		},
		[]string{"event"},
	)

	TasksEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dockhook_tasks_enqueued_total",
			Help: "Total number of delivery tasks enqueued.",
		},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhook_deliveries_total",
			Help: "Total number of delivery attempts by outcome.",
		},
		[]string{"outcome"}, // delivered, transient, permanent, dropped
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhook_retries_total",
			Help: "Total number of delivery retries by reason.",
		},
		[]string{"reason"}, // e.g. http_5xx, http_429, timeout, network
	)

	TerminalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockhook_terminal_failures_total",
			Help: "Total number of deliveries that failed terminally.",
		},
		[]string{"kind"}, // exhausted, permanent
	)

	DeadLettersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dockhook_dead_letters_total",
			Help: "Total number of dead letter envelopes published.",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dockhook_queue_depth",
			Help: "Current number of pending delivery tasks.",
		},
	)

	DeliveryLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dockhook_delivery_latency_seconds",
			Help:    "Latency of outbound webhook HTTP calls.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		EventsTriggeredTotal,
		TasksEnqueuedTotal,
		DeliveriesTotal,
		RetriesTotal,
		TerminalFailuresTotal,
		DeadLettersTotal,
		QueueDepth,
		DeliveryLatency,
	)
}
