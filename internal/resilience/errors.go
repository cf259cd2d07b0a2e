package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
)

type ErrorCategory string

const (
	CategoryNetwork         ErrorCategory = "network"
	CategoryTimeout         ErrorCategory = "timeout"
	CategoryElementNotFound ErrorCategory = "element_not_found"
	CategoryAuthentication  ErrorCategory = "authentication"
	CategoryRateLimit       ErrorCategory = "rate_limit"
	CategoryPlatform        ErrorCategory = "platform_error"
	CategoryValidation      ErrorCategory = "validation"
	CategoryUnknown         ErrorCategory = "unknown"
)

// Codes stored in PostResult.ErrorCode that are not error categories.
const (
	CodeCircuitOpen            = "circuit_open"
	CodeIntegrationUnavailable = "integration_unavailable"
	CodeInternal               = "internal"
)

// Error lets an integration state the category of a failure instead of
// relying on message matching.
type Error struct {
	Category ErrorCategory
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(category ErrorCategory, err error) *Error {
	return &Error{Category: category, Err: err}
}

func Validation(msg string) *Error {
	return &Error{Category: CategoryValidation, Err: errors.New(msg)}
}

// Categorized is implemented by transport errors that can derive their own
// category, such as HTTP status errors.
type Categorized interface {
	Category() ErrorCategory
}

type pattern struct {
	category ErrorCategory
	needles  []string
}

// Order matters: the first matching row wins.
var patterns = []pattern{
	{CategoryValidation, []string{"validation", "invalid content", "too long", "exceeds", "unsupported media", "required field"}},
	{CategoryTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{CategoryRateLimit, []string{"rate limit", "ratelimit", "too many requests", "status 429", "quota"}},
	{CategoryAuthentication, []string{"unauthorized", "status 401", "status 403", "forbidden", "invalid token", "token expired", "expired token", "login required", "not authenticated", "authentication", "credentials"}},
	{CategoryElementNotFound, []string{"element not found", "no such element", "selector", "not visible", "could not find node"}},
	{CategoryNetwork, []string{"connection refused", "connection reset", "no such host", "network", "broken pipe", "eof", "dial tcp"}},
	{CategoryPlatform, []string{"status 500", "status 502", "status 503", "status 504", "internal server error", "bad gateway", "service unavailable", "server error"}},
}

// Classify maps an error to the taxonomy. Explicit categories win, then
// well-known error types, then message patterns.
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}
	var re *Error
	if errors.As(err, &re) && re.Category != "" {
		return re.Category
	}
	var ce Categorized
	if errors.As(err, &ce) {
		if c := ce.Category(); c != CategoryUnknown {
			return c
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}
	return ClassifyMessage(err.Error())
}

func ClassifyMessage(msg string) ErrorCategory {
	lower := strings.ToLower(msg)
	for _, p := range patterns {
		for _, needle := range p.needles {
			if strings.Contains(lower, needle) {
				return p.category
			}
		}
	}
	return CategoryUnknown
}
