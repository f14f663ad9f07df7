package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API.
// Pointed at Groq by default.
type OpenAIClient struct {
	model   openai.ChatModel
	client  *openai.Client
	timeout time.Duration
}

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	DefaultModel   = "llama-3.1-8b-instant"

	defaultChatTimeout     = 30 * time.Second
	defaultChatTemperature = 0.9
)

type Options struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// NewOpenAIClient builds a chat client. An empty key is a configuration error.
func NewOpenAIClient(apiKey string, opts Options) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultChatTimeout
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(opts.BaseURL),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		model:   openai.ChatModel(opts.Model),
		client:  &cli,
		timeout: opts.Timeout,
	}, nil
}

func (c *OpenAIClient) Name() string {
	return string(c.model)
}

// Paraphrase asks the model for n rewrites of text, one per line.
func (c *OpenAIClient) Paraphrase(ctx context.Context, text string, n int) ([]string, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	if n < 1 {
		n = 1
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := buildMessages(
		fmt.Sprintf("You rewrite text. Produce exactly %d distinct paraphrases of the user's text that keep its meaning. "+
			"Write each paraphrase on its own line with no numbering, quotes or commentary.", n),
		text,
	)
	resp, err := c.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(defaultChatTemperature),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: no choices returned")
	}
	variants := extractVariants(resp.Choices[0].Message.Content)
	if len(variants) == 0 {
		return nil, fmt.Errorf("openai: empty paraphrase")
	}
	if len(variants) > n {
		variants = variants[:n]
	}
	return variants, nil
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

// extractVariants splits the model reply into one paraphrase per line,
// dropping list markers the model adds despite instructions.
func extractVariants(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-*• ")
		trimmed = trimNumbering(trimmed)
		trimmed = strings.Trim(trimmed, `"“” `)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// trimNumbering removes a leading "1." or "2)" marker.
func trimNumbering(s string) string {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i == 0 || i >= len(s) || (s[i] != '.' && s[i] != ')') {
		return s
	}
	return strings.TrimSpace(s[i+1:])
}
