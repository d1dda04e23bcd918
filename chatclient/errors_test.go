package chatclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{400, CodeInvalidRequest},
		{401, CodeInvalidAPIKey},
		{402, CodeInsufficientCredits},
		{404, CodeInvalidModel},
		{413, CodeContextLength},
		{422, CodeInvalidRequest},
		{429, CodeRateLimit},
		{500, CodeServiceUnavailable},
		{502, CodeServiceUnavailable},
		{503, CodeServiceUnavailable},
		{504, CodeServiceUnavailable},
		{418, CodeOther},
	}
	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "test", "boom", nil)
		if err.Code != tt.code {
			t.Errorf("status %d: expected code %s, got %s", tt.status, tt.code, err.Code)
		}
	}
}

func TestClientErrorStrategy(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		strategy RetryStrategy
	}{
		{CodeInvalidAPIKey, RetryFatal},
		{CodeMissingAPIKey, RetryFatal},
		{CodeInsufficientCredits, RetryFatal},
		{CodeInvalidModel, RetryFatal},
		{CodeRateLimit, RetryTransient},
		{CodeServiceUnavailable, RetryTransient},
		{CodeNetwork, RetryTransient},
		{CodeEmptyResponse, RetryTransient},
		{CodeInvalidRequest, RetryFeedback},
		{CodeContextLength, RetryFeedback},
		{CodeOther, RetryFeedback},
	}
	for _, tt := range tests {
		e := &ClientError{Code: tt.code, Message: "x"}
		if got := e.Strategy(); got != tt.strategy {
			t.Errorf("code %s: expected strategy %v, got %v", tt.code, tt.strategy, got)
		}
	}
}

func TestStrategyForUnclassifiedError(t *testing.T) {
	if got := StrategyFor(errors.New("connection reset")); got != RetryTransient {
		t.Errorf("expected unclassified errors to be transient, got %v", got)
	}
}

func TestStrategyForContextCancellation(t *testing.T) {
	if got := StrategyFor(context.Canceled); got != RetryFatal {
		t.Errorf("expected context.Canceled to be fatal, got %v", got)
	}
	if got := StrategyFor(fmt.Errorf("call failed: %w", context.DeadlineExceeded)); got != RetryFatal {
		t.Errorf("expected wrapped deadline error to be fatal, got %v", got)
	}
}

func TestStrategyForWrappedClientError(t *testing.T) {
	inner := &ClientError{Code: CodeInvalidAPIKey, Message: "bad key"}
	wrapped := fmt.Errorf("completion: %w", inner)
	if got := StrategyFor(wrapped); got != RetryFatal {
		t.Errorf("expected fatal through wrapping, got %v", got)
	}
	if IsRetryable(wrapped) {
		t.Error("fatal error must not be retryable")
	}
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	e := &ClientError{Code: CodeNetwork, Message: "net", Cause: cause}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
