package config

import (
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	t.Setenv("DOCKHOOK_TEST_SET", "value")

	if got := getenv("DOCKHOOK_TEST_SET", "def"); got != "value" {
		t.Errorf("getenv(set) = %q, want %q", got, "value")
	}
	if got := getenv("DOCKHOOK_TEST_UNSET", "def"); got != "def" {
		t.Errorf("getenv(unset) = %q, want %q", got, "def")
	}
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("DOCKHOOK_TEST_INT", "42")
	t.Setenv("DOCKHOOK_TEST_INT_BAD", "forty-two")

	if got := getenvInt("DOCKHOOK_TEST_INT", 7); got != 42 {
		t.Errorf("getenvInt(set) = %d, want 42", got)
	}
	if got := getenvInt("DOCKHOOK_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getenvInt(unparseable) = %d, want default 7", got)
	}
	if got := getenvInt("DOCKHOOK_TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("getenvInt(unset) = %d, want default 7", got)
	}
}

func TestGetenvFloat(t *testing.T) {
	t.Setenv("DOCKHOOK_TEST_FLOAT", "0.35")
	t.Setenv("DOCKHOOK_TEST_FLOAT_BAD", "a lot")

	if got := getenvFloat("DOCKHOOK_TEST_FLOAT", 0.1); got != 0.35 {
		t.Errorf("getenvFloat(set) = %v, want 0.35", got)
	}
	if got := getenvFloat("DOCKHOOK_TEST_FLOAT_BAD", 0.1); got != 0.1 {
		t.Errorf("getenvFloat(unparseable) = %v, want default 0.1", got)
	}
}

func TestGetenvBool(t *testing.T) {
	t.Setenv("DOCKHOOK_TEST_BOOL", "true")
	t.Setenv("DOCKHOOK_TEST_BOOL_BAD", "yep")

	if got := getenvBool("DOCKHOOK_TEST_BOOL", false); got != true {
		t.Errorf("getenvBool(set) = %v, want true", got)
	}
	if got := getenvBool("DOCKHOOK_TEST_BOOL_BAD", false); got != false {
		t.Errorf("getenvBool(unparseable) = %v, want default false", got)
	}
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("DOCKHOOK_TEST_DUR", "250ms")
	t.Setenv("DOCKHOOK_TEST_DUR_BAD", "soon")

	if got := getenvDuration("DOCKHOOK_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Errorf("getenvDuration(set) = %v, want 250ms", got)
	}
	if got := getenvDuration("DOCKHOOK_TEST_DUR_BAD", time.Second); got != time.Second {
		t.Errorf("getenvDuration(unparseable) = %v, want default 1s", got)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.AppName != "dockhook" {
		t.Errorf("AppName = %q, want %q", cfg.AppName, "dockhook")
	}
	if cfg.HTTPPort != ":8080" {
		t.Errorf("HTTPPort = %q, want %q", cfg.HTTPPort, ":8080")
	}
	if cfg.StoreKind != "memory" {
		t.Errorf("StoreKind = %q, want %q", cfg.StoreKind, "memory")
	}
	if cfg.Worker.Count != 4 {
		t.Errorf("Worker.Count = %d, want 4", cfg.Worker.Count)
	}

	r := cfg.Worker.Retry
	if r.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", r.MaxAttempts)
	}
	if r.BackoffBase != time.Second {
		t.Errorf("Retry.BackoffBase = %v, want 1s", r.BackoffBase)
	}
	if r.MaxDelay != 5*time.Minute {
		t.Errorf("Retry.MaxDelay = %v, want 5m", r.MaxDelay)
	}
	if r.JitterPercent != 0.2 {
		t.Errorf("Retry.JitterPercent = %v, want 0.2", r.JitterPercent)
	}
	if r.AttemptTimeout != 10*time.Second {
		t.Errorf("Retry.AttemptTimeout = %v, want 10s", r.AttemptTimeout)
	}

	if cfg.NSQ.PublishDLQ {
		t.Error("NSQ.PublishDLQ = true, want false by default")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "16")
	t.Setenv("MAX_ATTEMPTS", "3")
	t.Setenv("BACKOFF_BASE", "500ms")
	t.Setenv("STORE_KIND", "postgres")

	cfg := FromEnv()
	if cfg.Worker.Count != 16 {
		t.Errorf("Worker.Count = %d, want 16", cfg.Worker.Count)
	}
	if cfg.Worker.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Worker.Retry.MaxAttempts)
	}
	if cfg.Worker.Retry.BackoffBase != 500*time.Millisecond {
		t.Errorf("Retry.BackoffBase = %v, want 500ms", cfg.Worker.Retry.BackoffBase)
	}
	if cfg.StoreKind != "postgres" {
		t.Errorf("StoreKind = %q, want %q", cfg.StoreKind, "postgres")
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{DB: DB{User: "u", Pass: "p", Host: "h", Port: "5433", Name: "d"}}
	want := "postgres://u:p@h:5433/d?sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
