package executor

import (
	"context"
	"fmt"
	"time"

	"text-pipeline/internal/inference"
)

const (
	DefaultSummarizeModel         = "sshleifer/distilbart-cnn-12-6"
	DefaultSummarizeFallbackModel = "philschmid/bart-large-cnn-samsum"

	defaultAbstractiveTimeout = 45 * time.Second
	defaultMaxWait            = 180 * time.Second
)

// Abstractive writes new sentences summarizing a text. It also offers a
// deterministic single paraphrase over the paraphrase models.
type Abstractive struct {
	summarize  inference.Strategy
	paraphrase inference.Strategy
	dispatcher *inference.Dispatcher
}

// NewAbstractive builds the executor. opts.Models overrides the summarization
// models; paraphraseModels overrides the paraphrase models.
func NewAbstractive(apiKey string, opts Options, paraphraseModels ...string) (*Abstractive, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("abstractive: api key required")
	}
	timeout := opts.timeout(defaultAbstractiveTimeout)
	maxWait := opts.maxWait(defaultMaxWait)

	paraOpts := opts
	paraOpts.Models = paraphraseModels

	return &Abstractive{
		summarize: inference.Strategy{
			Task:       "summarization",
			Output:     "summary",
			Candidates: opts.candidates(DefaultSummarizeModel, DefaultSummarizeFallbackModel),
			Fields:     []string{inference.FieldSummary},
			Poll:       maxWait > 0,
			MaxWait:    maxWait,
			Timeout:    timeout,
		},
		paraphrase: inference.Strategy{
			Task:       "paraphraser",
			Output:     "paraphrase",
			Candidates: paraOpts.candidates(DefaultParaphraseModel, DefaultParaphraseFallbackModel),
			Fields:     []string{inference.FieldGenerated},
			Poll:       maxWait > 0,
			MaxWait:    maxWait,
			Timeout:    timeout,
		},
		dispatcher: opts.dispatcher(apiKey, "abstractive"),
	}, nil
}

// Summarize returns a summary whose bounds follow length (short, medium, long).
func (a *Abstractive) Summarize(ctx context.Context, text, length string) (string, error) {
	if blank(text) {
		return "", inference.InvalidInput(a.summarize.Task)
	}
	l := inference.LengthParams(length)
	out, err := a.dispatcher.Run(ctx, a.summarize, inference.Request{
		Inputs: text,
		Parameters: inference.Parameters{
			MaxLength:     l.Max,
			MinLength:     l.Min,
			DoSample:      inference.Bool(false),
			EarlyStopping: true,
		},
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Paraphrase returns one beam-searched rewrite of text.
func (a *Abstractive) Paraphrase(ctx context.Context, text string) (string, error) {
	if blank(text) {
		return "", inference.InvalidInput(a.paraphrase.Task)
	}
	out, err := a.dispatcher.Run(ctx, a.paraphrase, inference.Request{
		Inputs: paraphrasePrefix + text,
		Parameters: inference.Parameters{
			MaxLength:          256,
			NumBeams:           5,
			NumReturnSequences: 1,
			Temperature:        1.5,
		},
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}
