package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"text-pipeline/internal/transport"
)

// Kind classifies why a task produced no text.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfig means the capability was never constructed (missing credential).
	KindConfig
	// KindInvalid means the caller's input was rejected before any request.
	KindInvalid
	// KindTransient covers connection failures and cancelled calls.
	KindTransient
	// KindPermanent is a non-retryable answer from the remote API (4xx).
	KindPermanent
	// KindTimeout means every candidate endpoint was tried without success.
	KindTimeout
	// KindEmpty means an endpoint answered 200 without a usable generation.
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindInvalid:
		return "invalid"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindTimeout:
		return "timeout"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Error is the failure side of every task outcome. Message is written for
// end users and is what Error returns.
type Error struct {
	Kind    Kind
	Task    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether repeating the same call later may succeed.
func (e *Error) Temporary() bool {
	return e.Kind == KindTransient || e.Kind == KindTimeout
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ErrNoGeneration is wrapped when a response carries no usable text.
var ErrNoGeneration = errors.New("no generation in response")

// Unavailable is returned for a capability that failed to construct.
func Unavailable(name string) *Error {
	return &Error{
		Kind:    KindConfig,
		Task:    name,
		Message: fmt.Sprintf("%s unavailable: check the API key configuration", name),
	}
}

// InvalidInput rejects blank text.
func InvalidInput(task string) *Error {
	return &Error{
		Kind:    KindInvalid,
		Task:    task,
		Message: "Input text is empty! Please provide valid content.",
	}
}

// APIError reports a non-retryable status from the remote service.
func APIError(task string, status int, body []byte) *Error {
	return &Error{
		Kind:    KindPermanent,
		Task:    task,
		Status:  status,
		Message: fmt.Sprintf("API Error: %d - %s", status, excerpt(body)),
	}
}

// NoGeneration reports that the service answered without any text.
func NoGeneration(task, output string, cause error) *Error {
	return &Error{
		Kind:    KindEmpty,
		Task:    task,
		Message: fmt.Sprintf("No %s generated.", output),
		Err:     cause,
	}
}

// Exhausted reports that all tried candidates failed. With nothing tried it
// reports a configuration problem.
func Exhausted(task string, tried int, cause error) *Error {
	if tried == 0 {
		return &Error{
			Kind:    KindConfig,
			Task:    task,
			Message: fmt.Sprintf("No %s models configured.", task),
			Err:     cause,
		}
	}
	var which string
	switch tried {
	case 1:
		which = "The " + task + " model"
	case 2:
		which = "Both " + task + " models"
	default:
		which = fmt.Sprintf("All %d %s models", tried, task)
	}
	return &Error{
		Kind:    KindTimeout,
		Task:    task,
		Message: fmt.Sprintf("Timeout: %s failed.", which),
		Err:     cause,
	}
}

// Interrupted wraps the caller's context error.
func Interrupted(task string, err error) *Error {
	kind := KindTransient
	msg := "Error: request cancelled."
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
		msg = "Request timeout. Please try again."
	}
	return &Error{Kind: kind, Task: task, Message: msg, Err: err}
}

// ProviderError classifies a failure of a non-HTTP provider call.
func ProviderError(task string, err error) *Error {
	if transport.IsTimeout(err) {
		return &Error{Kind: KindTimeout, Task: task, Message: "Request timeout. Please try again.", Err: err}
	}
	return &Error{Kind: KindTransient, Task: task, Message: fmt.Sprintf("Error calling %s API: %v", task, err), Err: err}
}

// excerpt keeps at most 200 bytes of body, cut on a rune boundary.
func excerpt(body []byte) string {
	limit := 200
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
