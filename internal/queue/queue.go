package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"text-pipeline/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	TaskTypeSummarize  TaskType = "summarize"
	TaskTypeParaphrase TaskType = "paraphrase"
)

// DefaultMaxAttempts applies when a task does not set MaxAttempts.
const DefaultMaxAttempts = 3

// Task represents a unit of work for a worker. ReplyTo, when set, receives
// the Result once the task succeeds or stops being retried.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	ReplyTo     string `json:",omitempty"`
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type SummarizePayload struct {
	Text   string `json:"text"`
	Method string `json:"method,omitempty"`
	Length string `json:"length,omitempty"`
}

// ParaphrasePayload asks for Variants rewrites, or for a single beam-searched
// rewrite when Deterministic is set.
type ParaphrasePayload struct {
	Text          string `json:"text"`
	Variants      int    `json:"variants"`
	Deterministic bool   `json:"deterministic,omitempty"`
}

// Result is what a worker sends back on the reply subject.
type Result struct {
	TaskID   uuid.UUID `json:"task_id"`
	Result   string    `json:"result,omitempty"`
	Variants []string  `json:"variants,omitempty"`
	Error    string    `json:"error,omitempty"`
	Kind     string    `json:"kind,omitempty"`
}

// Err turns a failed Result back into an error.
func (r Result) Err() error {
	if r.Error == "" {
		return nil
	}
	return &RemoteError{Kind: r.Kind, Message: r.Error}
}

// RemoteError is a failure reported by a worker.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Handler processes a task. The Result is published to the reply subject
// as is; a non-nil error whose Temporary method reports true causes the task
// to be retried instead while attempts remain.
type Handler func(context.Context, Task) (Result, error)

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
	// Request enqueues task and waits for its Result.
	Request(ctx context.Context, task Task) (Result, error)
}

// NewTask encodes payload into a fresh task of the given type.
func NewTask(taskType TaskType, payload any, maxAttempts int) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return Task{
		ID:          uuid.New(),
		Type:        taskType,
		Payload:     body,
		MaxAttempts: maxAttempts,
	}, nil
}

// Decode unmarshals the task payload into v.
func (t Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	return nil
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		if err := retry.Sleep(ctx, retry.ExponentialBackoff(attempt, base)); err != nil {
			return err
		}
	}
	return nil
}

// temporary reports whether err asks to be retried.
func temporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
