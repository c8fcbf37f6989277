package dispatch

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/dockhook/dockhook/internal/config"
)

// backoffDelay computes the wait before the next attempt after the given
// 1-based attempt failed: base * 2^(attempt-1), capped at MaxDelay, with
// random jitter of up to +/- JitterPercent.
func backoffDelay(attempt int, r config.Retry) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := r.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= r.MaxDelay || d <= 0 { // <=0 guards duration overflow
			d = r.MaxDelay
			break
		}
	}
	if d > r.MaxDelay {
		d = r.MaxDelay
	}

	j := 1 + (rand.Float64()*2-1)*r.JitterPercent
	if j < 0.1 {
		j = 0.1
	}
	d = time.Duration(float64(d) * j)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// retryAfterDelay parses a Retry-After response header, either delta-seconds
// or an HTTP-date. The result is capped at MaxDelay so a misbehaving endpoint
// cannot park a task indefinitely.
func retryAfterDelay(resp *http.Response, now time.Time, r config.Retry) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.Atoi(h); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(h); err == nil {
		d = at.Sub(now)
	} else {
		return 0, false
	}

	if d < 0 {
		d = 0
	}
	if d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d, true
}
