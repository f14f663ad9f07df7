package readiness

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"text-pipeline/internal/transport"
)

// MockProber is a mock implementation of Prober using testify/mock.
type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, url string, payload any, timeout time.Duration) (transport.Response, error) {
	args := m.Called(ctx, url, payload, timeout)
	return args.Get(0).(transport.Response), args.Error(1)
}
