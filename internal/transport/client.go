// Package transport is the outbound HTTP layer for the hosted inference API.
// It repeats a call against the same endpoint on transient failures and
// leaves the choice of another endpoint to its callers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"text-pipeline/internal/logger"
	"text-pipeline/internal/retry"
)

// maxBodyBytes bounds how much of a response body is kept in memory.
const maxBodyBytes = 4 << 20

// ErrTimeout is returned when a single attempt exceeds its timeout.
// It is never retried by Send.
var ErrTimeout = errors.New("request timed out")

// TransportError reports a connection-level failure that survived every retry.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("connection to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client posts JSON payloads with a bearer credential.
// It is safe for concurrent use; retry state lives on the stack of each call.
type Client struct {
	token  string
	http   *http.Client
	policy retry.Policy
	log    *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying connection pool.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New builds a client that authenticates with token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:  token,
		http:   &http.Client{},
		policy: retry.DefaultPolicy(),
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts payload to url, repeating the call on the policy's status codes
// and on connection failures. When retries run out on a retryable status the
// last response is returned with a nil error. A timed out attempt returns
// ErrTimeout at once.
func (c *Client) Send(ctx context.Context, url string, payload any, timeout time.Duration) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, url, body, timeout)

		var wait time.Duration
		switch {
		case err == nil:
			if !c.policy.Retryable(resp.Status) || attempt >= c.policy.MaxRetries {
				return resp, nil
			}
			wait = c.retryAfter(resp.Header, attempt)
			c.log.Warn("retrying request",
				"url", url,
				"attempt", attempt+1,
				"status", resp.Status,
				"wait_ms", wait.Milliseconds(),
			)
		case errors.Is(err, ErrTimeout):
			return Response{}, err
		case ctx.Err() != nil:
			return Response{}, ctx.Err()
		default:
			if attempt >= c.policy.MaxRetries {
				return Response{}, &TransportError{URL: url, Attempts: attempt + 1, Err: err}
			}
			wait = c.policy.Delay(attempt)
			c.log.Warn("retrying request after connection error",
				"url", url,
				"attempt", attempt+1,
				"err", err,
				"wait_ms", wait.Milliseconds(),
			)
		}

		if err := retry.Sleep(ctx, wait); err != nil {
			return Response{}, err
		}
	}
}

// Probe makes a single attempt with no retries.
func (c *Client) Probe(ctx context.Context, url string, payload any, timeout time.Duration) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}
	return c.do(ctx, url, body, timeout)
}

func (c *Client) do(ctx context.Context, url string, body []byte, timeout time.Duration) (Response, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, c.classify(ctx, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, c.classify(ctx, url, err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if IsTimeout(err) {
		return fmt.Errorf("%w: %s", ErrTimeout, url)
	}
	return err
}

// retryAfter honours a numeric Retry-After header, capped by the policy.
func (c *Client) retryAfter(h http.Header, attempt int) time.Duration {
	if d, ok := parseRetryAfter(h.Get("Retry-After")); ok {
		if c.policy.MaxDelay > 0 && d > c.policy.MaxDelay {
			return c.policy.MaxDelay
		}
		return d
	}
	return c.policy.Delay(attempt)
}

func parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
