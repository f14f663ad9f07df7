package llm

import "context"

// Client is a minimal chat-model interface used as the last paraphrase candidate.
type Client interface {
	Name() string
	Paraphrase(ctx context.Context, text string, n int) ([]string, error)
}
