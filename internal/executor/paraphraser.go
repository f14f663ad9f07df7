package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"text-pipeline/internal/inference"
	"text-pipeline/internal/llm"
)

const (
	DefaultParaphraseModel         = "tuner007/pegasus_paraphrase"
	DefaultParaphraseFallbackModel = "Vamsi/T5_Paraphrase_Paws"

	defaultParaphraseTimeout = 30 * time.Second
	paraphrasePrefix         = "paraphrase: "
)

// Paraphraser generates several sampled rewrites of a text. When the hosted
// models all fail it asks the alternate chat provider, if one is configured.
type Paraphraser struct {
	strategy   inference.Strategy
	dispatcher *inference.Dispatcher
	alt        llm.Client
	log        *slog.Logger
}

// NewParaphraser needs at least one of apiKey (hosted models) or alt.
func NewParaphraser(apiKey string, alt llm.Client, opts Options) (*Paraphraser, error) {
	if apiKey == "" && alt == nil {
		return nil, fmt.Errorf("paraphraser: api key required")
	}
	maxWait := opts.maxWait(defaultMaxWait)
	p := &Paraphraser{
		strategy: inference.Strategy{
			Task:    "paraphraser",
			Output:  "paraphrase",
			Fields:  []string{inference.FieldGenerated, inference.FieldSummary},
			Poll:    maxWait > 0,
			MaxWait: maxWait,
			Timeout: opts.timeout(defaultParaphraseTimeout),
		},
		alt: alt,
		log: opts.logger().With("component", "paraphraser"),
	}
	if apiKey != "" {
		p.strategy.Candidates = opts.candidates(DefaultParaphraseModel, DefaultParaphraseFallbackModel)
		p.dispatcher = opts.dispatcher(apiKey, "paraphraser")
	}
	return p, nil
}

// Paraphrase returns between 1 and inference.MaxVariants rewrites; n is
// clamped into that range. Exact duplicates are kept.
func (p *Paraphraser) Paraphrase(ctx context.Context, text string, n int) ([]string, error) {
	if blank(text) {
		return nil, inference.InvalidInput(p.strategy.Task)
	}
	n = inference.ClampVariants(n)

	var hostedErr error
	if p.dispatcher != nil {
		out, err := p.dispatcher.Run(ctx, p.strategy, inference.Request{
			Inputs: paraphrasePrefix + text,
			Parameters: inference.Parameters{
				MaxLength:          256,
				NumReturnSequences: n,
				NumBeams:           max(5, n),
				Temperature:        0.9,
				TopP:               0.95,
				DoSample:           inference.Bool(true),
			},
		})
		if err == nil {
			return limit(out, n), nil
		}
		if p.alt == nil || ctx.Err() != nil {
			return nil, err
		}
		hostedErr = err
		p.log.Warn("hosted paraphrase models failed, trying alternate provider", "err", err)
	}

	out, err := p.alt.Paraphrase(ctx, text, n)
	if err != nil {
		p.log.Error("alternate paraphrase provider failed", "provider", p.alt.Name(), "err", err)
		if hostedErr != nil {
			var ierr *inference.Error
			if errors.As(hostedErr, &ierr) {
				return nil, &inference.Error{
					Kind:    ierr.Kind,
					Task:    ierr.Task,
					Status:  ierr.Status,
					Message: ierr.Message,
					Err:     errors.Join(ierr.Err, err),
				}
			}
			return nil, hostedErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, inference.Interrupted(p.strategy.Task, ctxErr)
		}
		return nil, inference.ProviderError(p.strategy.Task, err)
	}
	if len(out) == 0 {
		return nil, inference.NoGeneration(p.strategy.Task, p.strategy.Output, inference.ErrNoGeneration)
	}
	return limit(out, n), nil
}

func limit(out []string, n int) []string {
	if len(out) > n {
		return out[:n]
	}
	return out
}
