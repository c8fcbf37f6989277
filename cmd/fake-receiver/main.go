package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dockhook/dockhook/internal/config"
	"github.com/dockhook/dockhook/internal/signature"
)

var (
	cfg      config.FakeReceiver
	reqCount atomic.Int64
)

func main() {
	cfg = config.FromEnv().FakeReceiver

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/hook", handleHook)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	log.Printf("fake-receiver listening on %s", cfg.Port)
	log.Fatal(srv.ListenAndServe())
}

func handleHook(w http.ResponseWriter, r *http.Request) {
	n := reqCount.Add(1)
	b, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if cfg.ResponseDelayMS > 0 {
		time.Sleep(time.Duration(cfg.ResponseDelayMS) * time.Millisecond)
	}

	if cfg.EndpointSecret != "" {
		sig := r.Header.Get(signature.SignatureHeader)
		if sig == "" {
			log.Printf("fake-receiver rejecting unsigned request")
			http.Error(w, "missing signature", http.StatusUnauthorized)
			return
		}
		if !signature.Verify(cfg.EndpointSecret, b, sig) {
			log.Printf("fake-receiver signature mismatch")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	// Simulate flakiness: first N requests -> 500
	if n <= int64(cfg.FailFirstN) {
		log.Printf("FAILING (%d/%d) event=%s body=%s", n, cfg.FailFirstN,
			r.Header.Get(signature.EventHeader), truncate(string(b), 160))
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	log.Printf("fake-receiver OK event=%s subscription=%s body=%q",
		r.Header.Get(signature.EventHeader), r.Header.Get(signature.IDHeader), truncate(string(b), 160))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`ok`))
}

// truncate shortens a string for log lines
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
