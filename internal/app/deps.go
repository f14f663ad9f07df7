package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"text-pipeline/internal/config"
	"text-pipeline/internal/executor"
	"text-pipeline/internal/llm"
	"text-pipeline/internal/logger"
	"text-pipeline/internal/pipeline"
	"text-pipeline/internal/queue"
	"text-pipeline/internal/retry"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Pipeline pipeline.Service
	// Queue is nil unless QUEUE_URL is set.
	Queue queue.Queue

	closers []func()
}

// Build loads env, config, and shared components. A missing .env file is
// not an error; every capability the pipeline cannot build is reported by
// its Status instead of failing here.
func Build() (Deps, error) {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", envErr)
	}

	deps := Deps{
		Config:   cfg,
		Log:      log,
		Pipeline: pipeline.New(PipelineOptions(cfg, log)),
	}
	if cfg.QueueURL != "" {
		q, closeFn, err := buildQueue(cfg, log)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
		}
		deps.Queue = q
		deps.closers = append(deps.closers, closeFn)
	}
	return deps, nil
}

// RequireQueue fails when the deployment has no queue configured.
func (d Deps) RequireQueue() (queue.Queue, error) {
	if d.Queue == nil {
		return nil, errors.New("QUEUE_URL is required")
	}
	return d.Queue, nil
}

// Close releases connections opened by Build.
func (d Deps) Close() {
	for _, c := range d.closers {
		c()
	}
}

// PipelineOptions maps configuration onto the executors.
func PipelineOptions(cfg config.Config, log *slog.Logger) pipeline.Options {
	policy := retry.DefaultPolicy()
	if cfg.RetryMax >= 0 {
		policy.MaxRetries = cfg.RetryMax
	}
	if cfg.RetryBase > 0 {
		policy.Base = cfg.RetryBase
	}
	if cfg.RetryMaxDelay > 0 {
		policy.MaxDelay = cfg.RetryMaxDelay
	}

	base := executor.Options{
		BaseURL:      cfg.HFBaseURL,
		Timeout:      cfg.RequestTimeout,
		MaxWait:      cfg.ReadyMaxWait,
		PollInterval: cfg.ReadyPollInterval,
		Policy:       &policy,
		Log:          log,
	}

	extractive := base
	extractive.Models = cfg.ExtractiveModels
	extractive.Timeout = cfg.ExtractiveTimeout

	abstractive := base
	abstractive.Models = cfg.SummarizeModels

	paraphrase := base
	paraphrase.Models = cfg.ParaphraseModels

	return pipeline.Options{
		HFKey:       cfg.HFKey,
		GroqKey:     cfg.GroqKey,
		Extractive:  extractive,
		Abstractive: abstractive,
		Paraphrase:  paraphrase,
		Alternate: llm.Options{
			BaseURL:    cfg.GroqBaseURL,
			Model:      cfg.GroqModel,
			Timeout:    cfg.RequestTimeout,
			MaxRetries: policy.MaxRetries,
		},
		Log: log,
	}
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, func(), error) {
	nc, err := nats.Connect(cfg.QueueURL, nats.Name("text-pipeline"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue", "url", nc.ConnectedUrlRedacted())
	return queue.NewNATS(log, nc), nc.Close, nil
}
