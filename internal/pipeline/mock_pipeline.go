package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSummarizer is a mock implementation of Summarizer using testify/mock.
// It also satisfies BeamParaphraser, like the abstractive executor.
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text, length string) (string, error) {
	args := m.Called(ctx, text, length)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) Paraphrase(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

// MockParaphraser is a mock implementation of Paraphraser using testify/mock.
type MockParaphraser struct {
	mock.Mock
}

func (m *MockParaphraser) Paraphrase(ctx context.Context, text string, n int) ([]string, error) {
	args := m.Called(ctx, text, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockService is a mock implementation of Service using testify/mock.
type MockService struct {
	mock.Mock
}

func (m *MockService) Summarize(ctx context.Context, text, method, length string) (string, error) {
	args := m.Called(ctx, text, method, length)
	return args.String(0), args.Error(1)
}

func (m *MockService) Paraphrase(ctx context.Context, text string, n int) (string, error) {
	args := m.Called(ctx, text, n)
	return args.String(0), args.Error(1)
}

func (m *MockService) ParaphraseMany(ctx context.Context, text string, n int) ([]string, error) {
	args := m.Called(ctx, text, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockService) ParaphraseDeterministic(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}

func (m *MockService) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockService) Status() map[string]bool {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]bool)
}
