package executor

import (
	"context"
	"fmt"
	"time"

	"text-pipeline/internal/inference"
)

const (
	DefaultExtractiveModel   = "facebook/bart-large-cnn"
	defaultExtractiveTimeout = 60 * time.Second
)

// Extractive selects and condenses the most important sentences of a text.
type Extractive struct {
	strategy   inference.Strategy
	dispatcher *inference.Dispatcher
}

func NewExtractive(apiKey string, opts Options) (*Extractive, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extractive: api key required")
	}
	return &Extractive{
		strategy: inference.Strategy{
			Task:       "summarization",
			Output:     "summary",
			Candidates: opts.candidates(DefaultExtractiveModel),
			Fields:     []string{inference.FieldSummary},
			Timeout:    opts.timeout(defaultExtractiveTimeout),
		},
		dispatcher: opts.dispatcher(apiKey, "extractive"),
	}, nil
}

// Summarize returns a summary whose bounds follow length (short, medium, long).
func (e *Extractive) Summarize(ctx context.Context, text, length string) (string, error) {
	if blank(text) {
		return "", inference.InvalidInput(e.strategy.Task)
	}
	l := inference.LengthParams(length)
	out, err := e.dispatcher.Run(ctx, e.strategy, inference.Request{
		Inputs: text,
		Parameters: inference.Parameters{
			MaxLength: l.Max,
			MinLength: l.Min,
			DoSample:  inference.Bool(false),
		},
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}
