// Package readiness waits out the cold start of a hosted model.
package readiness

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"text-pipeline/internal/logger"
	"text-pipeline/internal/retry"
	"text-pipeline/internal/transport"
)

const (
	DefaultInterval     = 10 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Prober makes one unretried request against an endpoint.
type Prober interface {
	Probe(ctx context.Context, url string, payload any, timeout time.Duration) (transport.Response, error)
}

type probeRequest struct {
	Inputs string `json:"inputs"`
}

// Poller probes an endpoint with a trivial payload until it stops reporting
// that the model is loading.
type Poller struct {
	prober       Prober
	interval     time.Duration
	probeTimeout time.Duration
	log          *slog.Logger
}

func New(prober Prober, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Poller{
		prober:       prober,
		interval:     interval,
		probeTimeout: DefaultProbeTimeout,
		log:          log,
	}
}

// AwaitReady returns true as soon as the endpoint answers 200 or answers with
// anything that is not a loading notice. It returns false once maxWait has
// elapsed while the model still reports loading. A non-positive maxWait
// skips polling. No single probe outlives the deadline.
func (p *Poller) AwaitReady(ctx context.Context, url string, maxWait time.Duration) bool {
	if maxWait <= 0 {
		return true
	}
	deadline := time.Now().Add(maxWait)

	for {
		timeout := min(p.probeTimeout, time.Until(deadline))
		if timeout <= 0 {
			return false
		}
		resp, err := p.prober.Probe(ctx, url, probeRequest{Inputs: "ping"}, timeout)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return false
			}
			p.log.Debug("readiness probe failed", "url", url, "err", err)
		case resp.Status == http.StatusOK:
			return true
		case !isLoading(resp.Body):
			return true
		default:
			p.log.Info("model is loading", "url", url, "status", resp.Status)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if err := retry.Sleep(ctx, min(p.interval, remaining)); err != nil {
			return false
		}
		if !time.Now().Before(deadline) {
			return false
		}
	}
}

// isLoading is true only for a JSON object that mentions loading.
// Unparseable bodies count as ready.
func isLoading(body []byte) bool {
	var v map[string]any
	if err := json.Unmarshal(body, &v); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(body)), "loading")
}
