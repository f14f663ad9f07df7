// Package pipeline is the single entry point for callers. It builds every
// executor independently and routes requests to them; a capability whose
// executor could not be built answers with a configuration error.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"text-pipeline/internal/executor"
	"text-pipeline/internal/inference"
	"text-pipeline/internal/llm"
	"text-pipeline/internal/logger"
)

const (
	MethodExtractive  = "extractive"
	MethodAbstractive = "abstractive"

	CapabilityExtractive  = "extractive"
	CapabilityAbstractive = "abstractive"
	CapabilityParaphraser = "paraphraser"

	// VariantSeparator joins paraphrase variants into one string.
	VariantSeparator = "\n\n"
)

// Summarizer is implemented by the extractive and abstractive executors.
type Summarizer interface {
	Summarize(ctx context.Context, text, length string) (string, error)
}

// Paraphraser returns up to n rewrites of text.
type Paraphraser interface {
	Paraphrase(ctx context.Context, text string, n int) ([]string, error)
}

// BeamParaphraser returns a single beam-searched rewrite. The abstractive
// executor implements it on top of its summarization models.
type BeamParaphraser interface {
	Paraphrase(ctx context.Context, text string) (string, error)
}

// Service is what the presentation surfaces depend on.
type Service interface {
	Summarize(ctx context.Context, text, method, length string) (string, error)
	Paraphrase(ctx context.Context, text string, n int) (string, error)
	ParaphraseMany(ctx context.Context, text string, n int) ([]string, error)
	ParaphraseDeterministic(ctx context.Context, text string) (string, error)
	Status() map[string]bool
	Ready() bool
}

// Options carries the credentials and per-executor tuning.
type Options struct {
	HFKey   string
	GroqKey string

	Extractive  executor.Options
	Abstractive executor.Options
	Paraphrase  executor.Options
	Alternate   llm.Options

	Log *slog.Logger
}

type Pipeline struct {
	extractive  Summarizer
	abstractive Summarizer
	paraphraser Paraphraser
	beam        BeamParaphraser
	log         *slog.Logger
}

var _ Service = (*Pipeline)(nil)

// New never fails: each executor that cannot be built is logged and left out.
func New(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	p := &Pipeline{log: log}

	if e, err := executor.NewExtractive(opts.HFKey, withLog(opts.Extractive, log)); err != nil {
		log.Warn("extractive summarizer unavailable", "err", err)
	} else {
		p.extractive = e
	}

	if a, err := executor.NewAbstractive(opts.HFKey, withLog(opts.Abstractive, log), opts.Paraphrase.Models...); err != nil {
		log.Warn("abstractive summarizer unavailable", "err", err)
	} else {
		p.abstractive = a
		p.beam = a
	}

	var alt llm.Client
	if opts.GroqKey != "" {
		c, err := llm.NewOpenAIClient(opts.GroqKey, opts.Alternate)
		if err != nil {
			log.Warn("alternate paraphrase provider unavailable", "err", err)
		} else {
			alt = c
		}
	}
	if pp, err := executor.NewParaphraser(opts.HFKey, alt, withLog(opts.Paraphrase, log)); err != nil {
		log.Warn("paraphraser unavailable", "err", err)
	} else {
		p.paraphraser = pp
	}

	log.Info("pipeline initialized", "status", p.Status())
	return p
}

// NewWith assembles a pipeline from ready executors. Nil means unavailable.
// Deterministic paraphrasing is available when abstractive also implements
// BeamParaphraser.
func NewWith(extractive, abstractive Summarizer, paraphraser Paraphraser, log *slog.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	p := &Pipeline{
		extractive:  extractive,
		abstractive: abstractive,
		paraphraser: paraphraser,
		log:         log,
	}
	if b, ok := abstractive.(BeamParaphraser); ok {
		p.beam = b
	}
	return p
}

func withLog(o executor.Options, log *slog.Logger) executor.Options {
	if o.Log == nil {
		o.Log = log
	}
	return o
}

// Summarize routes to the extractive executor when method is "extractive"
// and to the abstractive one otherwise.
func (p *Pipeline) Summarize(ctx context.Context, text, method, length string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(method), MethodExtractive) {
		if p.extractive == nil {
			return "", inference.Unavailable("extractive summarizer")
		}
		return p.extractive.Summarize(ctx, text, length)
	}
	if p.abstractive == nil {
		return "", inference.Unavailable("abstractive summarizer")
	}
	return p.abstractive.Summarize(ctx, text, length)
}

// Paraphrase returns the variants joined by a blank line.
func (p *Pipeline) Paraphrase(ctx context.Context, text string, n int) (string, error) {
	variants, err := p.ParaphraseMany(ctx, text, n)
	if err != nil {
		return "", err
	}
	return strings.Join(variants, VariantSeparator), nil
}

func (p *Pipeline) ParaphraseMany(ctx context.Context, text string, n int) ([]string, error) {
	if p.paraphraser == nil {
		return nil, inference.Unavailable("paraphraser")
	}
	return p.paraphraser.Paraphrase(ctx, text, n)
}

// ParaphraseDeterministic returns one rewrite from beam search with sampling
// off, so the same input gives the same output.
func (p *Pipeline) ParaphraseDeterministic(ctx context.Context, text string) (string, error) {
	if p.beam == nil {
		return "", inference.Unavailable("deterministic paraphraser")
	}
	return p.beam.Paraphrase(ctx, text)
}

// Status reports which capabilities were built.
func (p *Pipeline) Status() map[string]bool {
	return map[string]bool{
		CapabilityExtractive:  p.extractive != nil,
		CapabilityAbstractive: p.abstractive != nil,
		CapabilityParaphraser: p.paraphraser != nil,
	}
}

// Ready is true when at least one capability is available. The gateway
// answers /readyz with 503 otherwise.
func (p *Pipeline) Ready() bool {
	return p.extractive != nil || p.abstractive != nil || p.paraphraser != nil
}
