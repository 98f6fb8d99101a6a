package llm

import "time"

// Attempt describes a failed call handed to a RetryPolicy
type Attempt struct {
	// N is the 0-based index of the attempt that just failed
	N     int
	Model string
	Err   error
}

// Decision is a RetryPolicy's verdict on a failed attempt
type Decision struct {
	Retry bool
	Model string
	Delay time.Duration
}

// RetryPolicy decides whether and how a failed attempt is retried
type RetryPolicy interface {
	Next(a Attempt) Decision
}

// NoRetry never retries
type NoRetry struct{}

// Next always declines
func (NoRetry) Next(Attempt) Decision { return Decision{} }

// FallbackPolicy retries a first-attempt 5xx exactly once on a different model
type FallbackPolicy struct {
	Fallback string
	Backoff  time.Duration
}

// Next retries only attempt 0, only on a server error, only onto a distinct fallback
func (p FallbackPolicy) Next(a Attempt) Decision {
	if a.N != 0 || !IsServerError(a.Err) {
		return Decision{}
	}
	if p.Fallback == "" || p.Fallback == a.Model {
		return Decision{}
	}
	return Decision{Retry: true, Model: p.Fallback, Delay: p.Backoff}
}
