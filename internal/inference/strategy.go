// Package inference shapes requests for the hosted text-generation API,
// walks the candidate endpoints of a task and turns their answers into text.
package inference

import (
	"strings"
	"time"
)

// Generation fields used by the hosted API.
const (
	FieldSummary   = "summary_text"
	FieldGenerated = "generated_text"
)

// MaxVariants bounds how many paraphrases one call may ask for.
const MaxVariants = 5

// Candidate is one endpoint able to serve a task.
type Candidate struct {
	Name    string
	URL     string
	Primary bool
}

// Candidates turns model ids into endpoint URLs under baseURL.
// The first model is the primary.
func Candidates(baseURL string, models ...string) []Candidate {
	base := strings.TrimRight(baseURL, "/") + "/"
	out := make([]Candidate, 0, len(models))
	for _, m := range models {
		m = strings.Trim(strings.TrimSpace(m), "/")
		if m == "" {
			continue
		}
		out = append(out, Candidate{
			Name:    m,
			URL:     base + m,
			Primary: len(out) == 0,
		})
	}
	return out
}

// Strategy is the static dispatch plan of one task.
type Strategy struct {
	// Task names the task in messages, e.g. "summarization".
	Task string
	// Output names one result in messages, e.g. "summary".
	Output     string
	Candidates []Candidate
	// Fields are the response keys holding generated text, in preference order.
	Fields  []string
	Poll    bool
	MaxWait time.Duration
	Timeout time.Duration
}

// Length holds the generation bounds for a length selector.
type Length struct {
	Max int
	Min int
}

var lengths = map[string]Length{
	"short":  {Max: 60, Min: 30},
	"medium": {Max: 130, Min: 60},
	"long":   {Max: 200, Min: 130},
}

// LengthParams maps short, medium and long to generation bounds.
// Anything else gets medium.
func LengthParams(selector string) Length {
	if l, ok := lengths[strings.ToLower(strings.TrimSpace(selector))]; ok {
		return l
	}
	return lengths["medium"]
}

// ClampVariants keeps n within [1, MaxVariants].
func ClampVariants(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxVariants {
		return MaxVariants
	}
	return n
}
