package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dockhook/dockhook/internal/api"
	"github.com/dockhook/dockhook/internal/auth"
	"github.com/dockhook/dockhook/internal/config"
	"github.com/dockhook/dockhook/internal/db"
	"github.com/dockhook/dockhook/internal/deadletter"
	"github.com/dockhook/dockhook/internal/dispatch"
	"github.com/dockhook/dockhook/internal/health"
	"github.com/dockhook/dockhook/internal/logging"
	"github.com/dockhook/dockhook/internal/metrics"
	"github.com/dockhook/dockhook/internal/queue"
	"github.com/dockhook/dockhook/internal/subscription"
	"github.com/dockhook/dockhook/internal/tracing"
)

func main() {
	cfg := config.FromEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.New("dockhookd")

	shutdown, err := tracing.InitTracing(ctx, "dockhookd")
	if err != nil {
		logger.Plain().WithError(err).Fatal("Failed to initialize tracing")
	}
	defer shutdown()

	// Subscription store: in-memory by default, Postgres when configured
	var store subscription.Store
	var dbpool *pgxpool.Pool
	switch cfg.StoreKind {
	case "postgres":
		dbpool, err = db.Connect(ctx, cfg.DSN())
		if err != nil {
			logger.Plain().WithError(err).Fatal("db connect failed")
		}
		defer dbpool.Close()
		store = subscription.NewPGStore(dbpool)
	default:
		store = subscription.NewMemoryStore()
	}

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	// Terminal failure observers: always log; publish to NSQ when configured
	observers := dispatch.MultiObserver{logObserver(logger)}
	if cfg.NSQ.PublishDLQ {
		publisher, err := deadletter.NewPublisher(cfg.NSQ.NsqdTCPAddr, cfg.NSQ.DLQTopic)
		if err != nil {
			logger.Plain().WithError(err).Fatal("nsq producer for dead letters failed")
		}
		defer publisher.Stop()
		observers = append(observers, publisher)
	}

	// Delivery pipeline
	q := queue.New()
	router := dispatch.NewRouter(store, q)
	workers := dispatch.NewPool(store, q, cfg.Worker, observers)
	workers.Start(ctx)

	// HTTP: admin API, health, metrics
	mux := http.NewServeMux()
	api.NewServer(store, router).Register(mux)
	mux.HandleFunc("/healthz", health.HTTPHandler(dbpool))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	if cfg.JWTPublicKey != "" {
		validator, err := auth.NewJWTValidator(cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience)
		if err != nil {
			logger.Plain().WithError(err).Fatal("jwt validator init failed")
		}
		handler = validator.HTTPMiddleware(mux)
	}

	httpSrv := &http.Server{Addr: cfg.HTTPPort, Handler: handler}
	go func() {
		logger.Plain().WithField("addr", httpSrv.Addr).Info("admin HTTP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("admin HTTP server failed")
		}
	}()

	logger.Plain().WithFields(map[string]any{
		"workers":      cfg.Worker.Count,
		"max_attempts": cfg.Worker.Retry.MaxAttempts,
		"store":        cfg.StoreKind,
	}).Info("dockhookd started")

	// Graceful stop
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("shutting down")
	cancel()
	abandoned := workers.Wait()
	_ = httpSrv.Shutdown(context.Background())
	logger.Plain().WithField("abandoned_tasks", abandoned).Info("dockhookd stopped")
}

// logObserver reports terminal failures to the structured log.
func logObserver(logger *logging.Logger) dispatch.FailureObserverFunc {
	return func(ctx context.Context, f dispatch.TerminalFailure) {
		logger.WithContext(ctx).
			WithTask(f.TaskID).
			WithSubscription(f.SubscriptionID).
			WithEvent(f.Event).
			WithFields(map[string]any{
				"kind":        f.Kind,
				"attempts":    f.Attempts,
				"http_status": f.HTTPStatus,
				"last_error":  f.LastError,
			}).
			Error("delivery failed terminally")
	}
}
