package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"text-pipeline/internal/inference"
	"text-pipeline/internal/logger"
	"text-pipeline/internal/pipeline"
	"text-pipeline/internal/queue"
)

func newTask(t *testing.T, typ queue.TaskType, payload any) queue.Task {
	t.Helper()
	task, err := queue.NewTask(typ, payload, 3)
	require.NoError(t, err)
	return task
}

func TestHandleSummarizeTask(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("Summarize", mock.Anything, "article", "extractive", "short").Return("summary", nil).Once()

	res, err := handleTask(svc, logger.Discard())(context.Background(),
		newTask(t, queue.TaskTypeSummarize, queue.SummarizePayload{Text: "article", Method: "extractive", Length: "short"}))
	require.NoError(t, err)
	assert.Equal(t, "summary", res.Result)
	assert.Empty(t, res.Error)
	svc.AssertExpectations(t)
}

func TestHandleParaphraseTask(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("ParaphraseMany", mock.Anything, "hello", 2).Return([]string{"hi", "hey"}, nil).Once()

	res, err := handleTask(svc, logger.Discard())(context.Background(),
		newTask(t, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: "hello", Variants: 2}))
	require.NoError(t, err)
	assert.Equal(t, "hi\n\nhey", res.Result)
	assert.Equal(t, []string{"hi", "hey"}, res.Variants)
}

func TestHandleDeterministicParaphraseTask(t *testing.T) {
	svc := new(pipeline.MockService)
	svc.On("ParaphraseDeterministic", mock.Anything, "hello").Return("hi", nil).Once()

	res, err := handleTask(svc, logger.Discard())(context.Background(),
		newTask(t, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: "hello", Variants: 3, Deterministic: true}))
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Result)
	assert.Equal(t, []string{"hi"}, res.Variants)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "ParaphraseMany", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleTaskFailures(t *testing.T) {
	tests := []struct {
		name     string
		task     func(t *testing.T) queue.Task
		setup    func(*pipeline.MockService)
		wantKind string
		wantTemp bool
	}{
		{
			name: "timeout is retried",
			task: func(t *testing.T) queue.Task {
				return newTask(t, queue.TaskTypeSummarize, queue.SummarizePayload{Text: "x"})
			},
			setup: func(s *pipeline.MockService) {
				s.On("Summarize", mock.Anything, "x", "", "").Return("", inference.Exhausted("summarization", 2, nil))
			},
			wantKind: "timeout",
			wantTemp: true,
		},
		{
			name: "api error is final",
			task: func(t *testing.T) queue.Task {
				return newTask(t, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: "x", Variants: 1})
			},
			setup: func(s *pipeline.MockService) {
				s.On("ParaphraseMany", mock.Anything, "x", 1).Return(nil, inference.APIError("paraphraser", 401, []byte("bad token")))
			},
			wantKind: "permanent",
		},
		{
			name: "deterministic paraphrase without abstractive",
			task: func(t *testing.T) queue.Task {
				return newTask(t, queue.TaskTypeParaphrase, queue.ParaphrasePayload{Text: "x", Deterministic: true})
			},
			setup: func(s *pipeline.MockService) {
				s.On("ParaphraseDeterministic", mock.Anything, "x").Return("", inference.Unavailable("deterministic paraphraser"))
			},
			wantKind: "config",
		},
		{
			name: "bad payload",
			task: func(t *testing.T) queue.Task {
				return queue.Task{Type: queue.TaskTypeSummarize, Payload: []byte("{")}
			},
			wantKind: "invalid",
		},
		{
			name: "unknown type",
			task: func(t *testing.T) queue.Task {
				return queue.Task{Type: "translate", Payload: []byte("{}")}
			},
			wantKind: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(pipeline.MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}

			res, err := handleTask(svc, logger.Discard())(context.Background(), tt.task(t))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Equal(t, err.Error(), res.Error)

			var ierr *inference.Error
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.wantTemp, ierr.Temporary())
		})
	}
}
