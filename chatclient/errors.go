package chatclient

import (
	"context"
	"errors"
	"fmt"
)

// RetryStrategy tells the session how to recover from a client error.
type RetryStrategy int

const (
	// RetryFatal: configuration or account problem; abort the turn and
	// surface to the user. No further model interaction is useful.
	RetryFatal RetryStrategy = iota
	// RetryTransient: network or service problem; retry with backoff.
	RetryTransient
	// RetryFeedback: the request itself was rejected (e.g. malformed content);
	// inform the model via a system message and let it try again.
	RetryFeedback
)

// ErrorCode identifies the failure category of a ClientError.
type ErrorCode string

const (
	CodeInvalidAPIKey       ErrorCode = "invalid_api_key"
	CodeMissingAPIKey       ErrorCode = "missing_api_key"
	CodeInsufficientCredits ErrorCode = "insufficient_credits"
	CodeInvalidModel        ErrorCode = "invalid_model"
	CodeInvalidRequest      ErrorCode = "invalid_request"
	CodeContextLength       ErrorCode = "context_length_exceeded"
	CodeRateLimit           ErrorCode = "rate_limit_exceeded"
	CodeServiceUnavailable  ErrorCode = "service_unavailable"
	CodeNetwork             ErrorCode = "network_error"
	CodeEmptyResponse       ErrorCode = "empty_response"
	CodeOther               ErrorCode = "other"
)

// ClientError is a classified failure from a provider adapter.
type ClientError struct {
	Code       ErrorCode
	Message    string
	Provider   string
	StatusCode int
	// RetryAfter, when set, is the provider-requested delay in seconds
	// before the next attempt (rate limiting).
	RetryAfter *float64
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Cause }

// Strategy returns the recovery strategy for this error's code.
func (e *ClientError) Strategy() RetryStrategy {
	switch e.Code {
	case CodeInvalidAPIKey, CodeMissingAPIKey, CodeInsufficientCredits, CodeInvalidModel:
		return RetryFatal
	case CodeRateLimit, CodeServiceUnavailable, CodeNetwork, CodeEmptyResponse:
		return RetryTransient
	case CodeInvalidRequest, CodeContextLength, CodeOther:
		return RetryFeedback
	default:
		return RetryFeedback
	}
}

// ErrorFromStatusCode maps an HTTP status code from a provider into a
// classified ClientError.
func ErrorFromStatusCode(statusCode int, provider, message string, cause error) *ClientError {
	e := &ClientError{
		Message:    message,
		Provider:   provider,
		StatusCode: statusCode,
		Cause:      cause,
	}
	switch statusCode {
	case 400, 422:
		e.Code = CodeInvalidRequest
	case 401:
		e.Code = CodeInvalidAPIKey
	case 402:
		e.Code = CodeInsufficientCredits
	case 403:
		e.Code = CodeInvalidAPIKey
	case 404:
		e.Code = CodeInvalidModel
	case 413:
		e.Code = CodeContextLength
	case 429:
		e.Code = CodeRateLimit
	case 500, 502, 503, 504:
		e.Code = CodeServiceUnavailable
	default:
		e.Code = CodeOther
	}
	return e
}

// StrategyFor classifies any error returned from a ChatClient. Unclassified
// errors are treated as transient: a one-off transport hiccup should not end
// the session, and bounded retry exhaustion surfaces it anyway. Context
// cancellation is always fatal to the turn.
func StrategyFor(err error) RetryStrategy {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return RetryFatal
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Strategy()
	}
	return RetryTransient
}

// IsRetryable reports whether the error is safe to retry as-is.
func IsRetryable(err error) bool {
	return StrategyFor(err) == RetryTransient
}
