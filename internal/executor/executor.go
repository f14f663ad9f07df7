// Package executor holds the task executors: extractive and abstractive
// summarization and paraphrasing. Each owns its endpoint strategy and its own
// HTTP connection pool, and reports every failure as an *inference.Error.
package executor

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"text-pipeline/internal/inference"
	"text-pipeline/internal/logger"
	"text-pipeline/internal/readiness"
	"text-pipeline/internal/retry"
	"text-pipeline/internal/transport"
)

// DefaultBaseURL is the hosted inference API the model ids are resolved against.
const DefaultBaseURL = "https://api-inference.huggingface.co/models/"

// Options tune an executor; zero values take the executor's defaults.
type Options struct {
	BaseURL string
	// Models are tried in order; the first one is the primary.
	Models  []string
	Timeout time.Duration
	// MaxWait bounds readiness polling per model. Zero keeps the default,
	// a negative value disables polling.
	MaxWait      time.Duration
	PollInterval time.Duration
	Policy       *retry.Policy
	HTTPClient   *http.Client
	Log          *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return logger.Discard()
	}
	return o.Log
}

func (o Options) candidates(defaults ...string) []inference.Candidate {
	base := o.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	models := o.Models
	if len(models) == 0 {
		models = defaults
	}
	return inference.Candidates(base, models...)
}

func (o Options) timeout(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

func (o Options) maxWait(def time.Duration) time.Duration {
	switch {
	case o.MaxWait < 0:
		return 0
	case o.MaxWait == 0:
		return def
	default:
		return o.MaxWait
	}
}

func (o Options) dispatcher(apiKey, component string) *inference.Dispatcher {
	log := o.logger().With("component", component)
	clientOpts := []transport.Option{
		transport.WithHTTPClient(o.HTTPClient),
		transport.WithLogger(log),
	}
	if o.Policy != nil {
		clientOpts = append(clientOpts, transport.WithPolicy(*o.Policy))
	}
	client := transport.New(apiKey, clientOpts...)
	poller := readiness.New(client, o.PollInterval, log)
	return inference.NewDispatcher(client, poller, log)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
