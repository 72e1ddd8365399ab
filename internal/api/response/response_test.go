// internal/api/response/response_test.go
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/sigrelay/internal/core"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"hello": "world"}

	JSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json content type")
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["hello"] != "world" {
		t.Errorf("expected body to be the data itself, got %s", w.Body.String())
	}
}

func TestJSON_Array(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, []int{1, 2})

	var resp []int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected a JSON array: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp))
	}
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()
	err := core.WrapError(core.ErrInvalidInput, fmt.Errorf("no data received"))

	Error(w, http.StatusBadRequest, err)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "error" {
		t.Errorf("expected status error, got %s", resp.Status)
	}
	if resp.Error.Code != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "no data received" {
		t.Errorf("expected cause, got %q", resp.Error.Cause)
	}
	if resp.Message != resp.Error.Message {
		t.Errorf("expected top-level message to mirror detail, got %q", resp.Message)
	}
}

func TestError_WithoutCause(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusUnauthorized, core.ErrUnauthorized)

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "" {
		t.Errorf("expected no cause, got %s", resp.Error.Cause)
	}
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("boom"))

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("expected INTERNAL_ERROR, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "" {
		t.Error("plain errors should not leak their text")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.WrapError(core.ErrInvalidInput, errors.New("x")), http.StatusBadRequest},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.WrapError(core.ErrEnhancementFailed, errors.New("x")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
