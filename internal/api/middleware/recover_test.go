package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/newthinker/sigrelay/internal/api/response"
)

func TestRecover_Panic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	Recover(zap.New(core))(panicking).ServeHTTP(w, httptest.NewRequest("POST", "/webhook/tradingview", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}

	var resp response.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "error" {
		t.Errorf("expected error body, got %s", w.Body.String())
	}
	if logs.Len() != 1 {
		t.Errorf("expected 1 log entry, got %d", logs.Len())
	}
}

func TestRecover_NoPanic(t *testing.T) {
	w := httptest.NewRecorder()
	Recover(nil)(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
