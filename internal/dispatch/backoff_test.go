package dispatch

import (
	"net/http"
	"testing"
	"time"

	"github.com/dockhook/dockhook/internal/config"
)

func TestBackoffDelayExponential(t *testing.T) {
	r := config.Retry{
		BackoffBase:   time.Second,
		MaxDelay:      5 * time.Minute,
		JitterPercent: 0, // deterministic
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{0, time.Second}, // clamped to attempt 1
	}

	for _, tt := range tests {
		if got := backoffDelay(tt.attempt, r); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	r := config.Retry{
		BackoffBase:   time.Second,
		MaxDelay:      10 * time.Second,
		JitterPercent: 0,
	}

	for _, attempt := range []int{5, 10, 63, 64, 100} {
		got := backoffDelay(attempt, r)
		if got != r.MaxDelay {
			t.Errorf("backoffDelay(%d) = %v, want cap %v", attempt, got, r.MaxDelay)
		}
	}
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	r := config.Retry{
		BackoffBase:   time.Second,
		MaxDelay:      5 * time.Minute,
		JitterPercent: 0.2,
	}

	base := 4 * time.Second // attempt 3
	lo := time.Duration(float64(base) * 0.8)
	hi := time.Duration(float64(base) * 1.2)
	for i := 0; i < 200; i++ {
		got := backoffDelay(3, r)
		if got < lo || got > hi {
			t.Fatalf("backoffDelay(3) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestRetryAfterDelay(t *testing.T) {
	r := config.Retry{MaxDelay: time.Minute}
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	mkResp := func(header string) *http.Response {
		resp := &http.Response{Header: http.Header{}}
		if header != "" {
			resp.Header.Set("Retry-After", header)
		}
		return resp
	}

	tests := []struct {
		name   string
		resp   *http.Response
		want   time.Duration
		wantOK bool
	}{
		{"nil response", nil, 0, false},
		{"no header", mkResp(""), 0, false},
		{"delta seconds", mkResp("30"), 30 * time.Second, true},
		{"zero seconds", mkResp("0"), time.Millisecond, true},
		{"negative seconds", mkResp("-5"), 0, false},
		{"capped at max delay", mkResp("3600"), time.Minute, true},
		{"http date in future", mkResp(now.Add(10 * time.Second).Format(http.TimeFormat)), 10 * time.Second, true},
		{"http date in past", mkResp(now.Add(-time.Hour).Format(http.TimeFormat)), time.Millisecond, true},
		{"garbage", mkResp("soon"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := retryAfterDelay(tt.resp, now, r)
			if ok != tt.wantOK {
				t.Fatalf("retryAfterDelay() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("retryAfterDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}
