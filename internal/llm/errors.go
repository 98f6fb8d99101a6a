package llm

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"unicode/utf8"
)

// maxErrorBody bounds the upstream body carried by UpstreamError
const maxErrorBody = 400

// ConfigurationError reports a missing credential or unusable setting.
// It is returned before any network call is made.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration: " + e.Reason
}

// AuthError reports that the upstream rejected our credentials (401/403)
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// RateLimitError carries the raw upstream message of a 429 response
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded: %s", e.Provider, e.Message)
}

// UpstreamError is any other non-success response or a transport failure.
// StatusCode is 0 when no response was received.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// MalformedResponseError means a success response had no usable text
type MalformedResponseError struct {
	Provider string
	Body     string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("%s unexpected response", e.Provider)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsServerError reports whether err is an UpstreamError with a 5xx status
func IsServerError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode >= 500 && ue.StatusCode <= 599
}

// ErrorKind returns a short label for err, used in logs and metrics
func ErrorKind(err error) string {
	var (
		cfgErr  *ConfigurationError
		authErr *AuthError
		rlErr   *RateLimitError
		upErr   *UpstreamError
		malErr  *MalformedResponseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rlErr):
		return "rate_limit"
	case errors.As(err, &upErr):
		if upErr.StatusCode == 0 {
			return "transport"
		}
		return "upstream"
	case errors.As(err, &malErr):
		return "malformed"
	default:
		return "error"
	}
}

// classifyStatus maps a non-2xx status onto the error taxonomy
func classifyStatus(provider string, status int, message string, cause error) error {
	switch {
	case status == 401 || status == 403:
		return &AuthError{Provider: provider, StatusCode: status, Message: message}
	case status == 429:
		return &RateLimitError{Provider: provider, Message: message}
	default:
		return &UpstreamError{Provider: provider, StatusCode: status, Body: truncate(message, maxErrorBody), Err: cause}
	}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// isTransport reports whether err happened before any HTTP response arrived
func isTransport(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
