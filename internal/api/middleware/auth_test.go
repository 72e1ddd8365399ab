// internal/api/middleware/auth_test.go
package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/sigrelay/internal/api/response"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	wrapped := APIKeyAuth("secret-key")(okHandler())

	req := httptest.NewRequest("POST", "/webhook/tradingview", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAPIKeyAuth_QueryToken(t *testing.T) {
	wrapped := APIKeyAuth("secret-key")(okHandler())

	req := httptest.NewRequest("POST", "/webhook/tradingview?token=secret-key", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for query token, got %d", w.Code)
	}
}

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	wrapped := APIKeyAuth("secret-key")(okHandler())

	req := httptest.NewRequest("POST", "/webhook/tradingview", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	var resp response.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %s", resp.Error.Code)
	}
}

func TestAPIKeyAuth_InvalidKey(t *testing.T) {
	wrapped := APIKeyAuth("secret-key")(okHandler())

	req := httptest.NewRequest("POST", "/webhook/tradingview?token=wrong", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAPIKeyAuth_EmptyConfiguredKey(t *testing.T) {
	wrapped := APIKeyAuth("")(okHandler()) // Empty = disabled

	req := httptest.NewRequest("POST", "/webhook/tradingview", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when auth disabled, got %d", w.Code)
	}
}
