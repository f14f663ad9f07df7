package retry

import (
	"context"
	"net/http"
	"time"
)

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// Policy describes how many times a call is repeated and how long to wait in between.
type Policy struct {
	MaxRetries int
	Base       time.Duration
	MaxDelay   time.Duration
	Statuses   []int
}

// DefaultStatuses are the HTTP codes worth repeating against the same endpoint.
var DefaultStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		Base:       500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Statuses:   DefaultStatuses,
	}
}

// Delay returns the backoff for the given zero-based retry, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// keep the shift well inside int64
	if attempt > 30 {
		attempt = 30
	}
	d := ExponentialBackoff(attempt, p.Base)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retryable reports whether status is in the policy's status list.
func (p Policy) Retryable(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
