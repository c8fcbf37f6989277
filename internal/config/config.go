package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type NSQ struct {
	NsqdTCPAddr string // e.g. nsqd:4150
	DLQTopic    string // dead letter topic for exhausted deliveries
	PublishDLQ  bool   // whether terminal failures are published to NSQ
}

type Retry struct {
	MaxAttempts    int           // total delivery attempts per task
	BackoffBase    time.Duration // first retry delay; doubles each attempt
	MaxDelay       time.Duration // ceiling for computed and Retry-After delays
	JitterPercent  float64       // backoff jitter fraction (0.0-1.0)
	AttemptTimeout time.Duration // per-attempt HTTP timeout
}

type Worker struct {
	Count int   // delivery worker pool size
	Retry Retry // retry policy applied by every worker
}

type FakeReceiver struct {
	FailFirstN      int           // number of requests to fail initially
	EndpointSecret  string        // secret for signature verification
	ResponseDelayMS int           // simulated response delay in milliseconds
	Port            string        // server listen port
	ReadTimeout     time.Duration // HTTP read timeout
	WriteTimeout    time.Duration // HTTP write timeout
	IdleTimeout     time.Duration // HTTP idle timeout
}

type Config struct {
	AppName      string
	HTTPPort     string // admin API + metrics, :8080
	StoreKind    string // "memory" or "postgres"
	JWTPublicKey string // PEM; empty disables admin API auth
	JWTIssuer    string
	JWTAudience  string
	DB           DB
	NSQ          NSQ
	Worker       Worker
	FakeReceiver FakeReceiver
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func FromEnv() Config {
	return Config{
		AppName:      getenv("APP_NAME", "dockhook"),
		HTTPPort:     getenv("HTTP_PORT", ":8080"),
		StoreKind:    getenv("STORE_KIND", "memory"),
		JWTPublicKey: getenv("JWT_PUBLIC_KEY", ""),
		JWTIssuer:    getenv("JWT_ISSUER", "dockhook"),
		JWTAudience:  getenv("JWT_AUDIENCE", "dockhook-admin"),
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "dockhook"),
		},
		NSQ: NSQ{
			NsqdTCPAddr: getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			DLQTopic:    getenv("NSQ_DLQ_TOPIC", "deliveries_dlq"),
			PublishDLQ:  getenvBool("PUBLISH_DLQ_TOPIC", false),
		},
		Worker: Worker{
			Count: getenvInt("WORKER_COUNT", 4),
			Retry: Retry{
				MaxAttempts:    getenvInt("MAX_ATTEMPTS", 5),
				BackoffBase:    getenvDuration("BACKOFF_BASE", time.Second),
				MaxDelay:       getenvDuration("BACKOFF_MAX_DELAY", 5*time.Minute),
				JitterPercent:  getenvFloat("BACKOFF_JITTER_PCT", 0.2),
				AttemptTimeout: getenvDuration("ATTEMPT_TIMEOUT", 10*time.Second),
			},
		},
		FakeReceiver: FakeReceiver{
			FailFirstN:      getenvInt("FAIL_FIRST_N", 0),
			EndpointSecret:  getenv("ENDPOINT_SECRET", ""),
			ResponseDelayMS: getenvInt("RESPONSE_DELAY_MS", 0),
			Port:            getenv("FAKE_RECEIVER_PORT", ":8081"),
			ReadTimeout:     getenvDuration("FAKE_RECEIVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getenvDuration("FAKE_RECEIVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getenvDuration("FAKE_RECEIVER_IDLE_TIMEOUT", 60*time.Second),
		},
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
