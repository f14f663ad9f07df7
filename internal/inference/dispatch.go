package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"text-pipeline/internal/logger"
	"text-pipeline/internal/transport"
)

// Sender posts a payload to one endpoint, retrying transient failures itself.
type Sender interface {
	Send(ctx context.Context, url string, payload any, timeout time.Duration) (transport.Response, error)
}

// ReadinessChecker waits for an endpoint to finish loading its model.
type ReadinessChecker interface {
	AwaitReady(ctx context.Context, url string, maxWait time.Duration) bool
}

// Dispatcher walks a strategy's candidates until one produces text.
type Dispatcher struct {
	sender Sender
	poller ReadinessChecker
	log    *slog.Logger
}

// NewDispatcher builds a dispatcher; poller may be nil to disable polling.
func NewDispatcher(sender Sender, poller ReadinessChecker, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{sender: sender, poller: poller, log: log}
}

// Run tries each candidate in order. Timeouts, connection failures, 429/5xx
// answers and empty generations move on to the next candidate. Any other
// non-200 status ends the run with a permanent error.
func (d *Dispatcher) Run(ctx context.Context, s Strategy, payload any) ([]string, error) {
	var (
		causes   []error
		sawEmpty bool
		tried    int
	)

	for _, c := range s.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, Interrupted(s.Task, err)
		}
		tried++
		log := d.log.With("task", s.Task, "model", c.Name, "primary", c.Primary)

		if s.Poll && d.poller != nil {
			if !d.poller.AwaitReady(ctx, c.URL, s.MaxWait) {
				if err := ctx.Err(); err != nil {
					return nil, Interrupted(s.Task, err)
				}
				log.Warn("model never reported ready, sending request anyway")
			}
		}

		log.Info("trying model")
		resp, err := d.sender.Send(ctx, c.URL, payload, s.Timeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, Interrupted(s.Task, ctxErr)
			}
			var terr *transport.TransportError
			switch {
			case transport.IsTimeout(err):
				log.Warn("read timeout, switching to next model", "err", err)
			case errors.As(err, &terr):
				log.Warn("connection failed, switching to next model", "err", err)
			default:
				log.Warn("request failed, switching to next model", "err", err)
			}
			causes = append(causes, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}

		switch {
		case resp.Status == http.StatusOK:
			out, err := ParseGenerations(resp.Body, s.Fields...)
			if err != nil {
				log.Warn("no generation in response")
				sawEmpty = true
				causes = append(causes, fmt.Errorf("%s: %w", c.Name, err))
				continue
			}
			return out, nil
		case fallbackStatus(resp.Status):
			log.Warn("model failed after retries", "status", resp.Status, "body", excerpt(resp.Body))
			causes = append(causes, fmt.Errorf("%s: status %d", c.Name, resp.Status))
		default:
			log.Error("model rejected request", "status", resp.Status, "body", excerpt(resp.Body))
			return nil, APIError(s.Task, resp.Status, resp.Body)
		}
	}

	cause := errors.Join(causes...)
	if sawEmpty {
		return nil, NoGeneration(s.Task, s.Output, cause)
	}
	return nil, Exhausted(s.Task, tried, cause)
}

func fallbackStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
