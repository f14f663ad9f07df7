package inference

import (
	"encoding/json"
	"strings"
)

// Request is the body the hosted API expects.
type Request struct {
	Inputs     string     `json:"inputs"`
	Parameters Parameters `json:"parameters"`
}

// Parameters are generation settings; zero values are left out.
type Parameters struct {
	MaxLength          int     `json:"max_length,omitempty"`
	MinLength          int     `json:"min_length,omitempty"`
	DoSample           *bool   `json:"do_sample,omitempty"`
	EarlyStopping      bool    `json:"early_stopping,omitempty"`
	NumBeams           int     `json:"num_beams,omitempty"`
	NumReturnSequences int     `json:"num_return_sequences,omitempty"`
	Temperature        float64 `json:"temperature,omitempty"`
	TopP               float64 `json:"top_p,omitempty"`
}

func Bool(b bool) *bool { return &b }

// ParseGenerations extracts generated text from a 200 response body.
//
// A list of objects yields the first non-empty value of fields per element;
// bare strings are accepted and blank entries dropped. If the first object
// carries none of the fields, or the body is some other JSON value, the raw
// body is returned as the only result. Empty lists and undecodable bodies
// wrap ErrNoGeneration.
func ParseGenerations(body []byte, fields ...string) ([]string, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ErrNoGeneration
	}

	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, ErrNoGeneration
		}
		return []string{strings.TrimSpace(string(body))}, nil
	}
	if len(list) == 0 {
		return nil, ErrNoGeneration
	}

	var out []string
	for i, item := range list {
		switch v := item.(type) {
		case map[string]any:
			text, found := pickField(v, fields)
			if !found {
				if i == 0 {
					return []string{strings.TrimSpace(string(body))}, nil
				}
				continue
			}
			if text = strings.TrimSpace(text); text != "" {
				out = append(out, text)
			}
		case string:
			if text := strings.TrimSpace(v); text != "" {
				out = append(out, text)
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoGeneration
	}
	return out, nil
}

func pickField(obj map[string]any, fields []string) (string, bool) {
	found := false
	for _, f := range fields {
		s, ok := obj[f].(string)
		if !ok {
			continue
		}
		found = true
		if strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", found
}
