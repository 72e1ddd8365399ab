// internal/core/errors_test.go
package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: "TEST_ERROR", Message: "test message"}
	if err.Error() != "[TEST_ERROR] test message" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	err := WrapError(ErrInvalidInput, errors.New("no data received"))
	want := "[INVALID_INPUT] invalid signal payload: no data received"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: "WRAP", Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should return cause")
	}
}

func TestError_Is(t *testing.T) {
	if !errors.Is(ErrEnhancementFailed, ErrEnhancementFailed) {
		t.Error("same error should match")
	}
	if errors.Is(ErrEnhancementFailed, ErrInvalidInput) {
		t.Error("different codes should not match")
	}
}

func TestError_IsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", WrapError(ErrInvalidInput, errors.New("bad json")))
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected wrapped core error to match by code")
	}
}

func TestWrapError(t *testing.T) {
	cause := errors.New("original")
	wrapped := WrapError(ErrSourceFailed, cause)
	if wrapped.Cause != cause {
		t.Error("cause not set")
	}
	if wrapped.Code != ErrSourceFailed.Code {
		t.Error("code not preserved")
	}
}
