package llm

import (
	"context"
	"time"
)

// Middleware decorates a Backend
type Middleware func(Backend) Backend

// Chain applies middleware so the first one listed is outermost
func Chain(backend Backend, middleware ...Middleware) Backend {
	for i := len(middleware) - 1; i >= 0; i-- {
		backend = middleware[i](backend)
	}
	return backend
}

// CallRecorder receives one observation per backend attempt
type CallRecorder interface {
	ObserveLLMCall(provider, model, status string, elapsed time.Duration)
}

// WithMetrics records every attempt's outcome and latency
func WithMetrics(rec CallRecorder) Middleware {
	return func(next Backend) Backend {
		return &metricsBackend{next: next, rec: rec}
	}
}

type metricsBackend struct {
	next Backend
	rec  CallRecorder
}

func (m *metricsBackend) Name() string { return m.next.Name() }

func (m *metricsBackend) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := m.next.Complete(ctx, req)
	m.rec.ObserveLLMCall(m.next.Name(), req.Model, ErrorKind(err), time.Since(start))
	return text, err
}
