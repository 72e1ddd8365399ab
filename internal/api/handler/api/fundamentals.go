package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/api/response"
	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/fundamental"
)

// Overlay is the fundamental overlay as used over HTTP.
type Overlay interface {
	Enhance(ctx context.Context, raw core.RawSignal) *fundamental.Result
	Summary(ctx context.Context, pair string) fundamental.Summary
}

// FundamentalsHandler exposes the fundamental overlay.
type FundamentalsHandler struct {
	overlay Overlay
	timeout time.Duration
	logger  *zap.Logger
}

// NewFundamentalsHandler creates a handler. timeout bounds each request's
// upstream fetches; zero leaves the request context as is.
func NewFundamentalsHandler(overlay Overlay, timeout time.Duration, logger *zap.Logger) *FundamentalsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FundamentalsHandler{overlay: overlay, timeout: timeout, logger: logger}
}

func (h *FundamentalsHandler) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// Enhance handles POST /api/fundamentals/enhance. Degraded and passthrough
// results are still 200.
func (h *FundamentalsHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	raw, err := core.DecodeRawSignal(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	response.JSON(w, http.StatusOK, h.overlay.Enhance(ctx, raw))
}

// Summary handles GET /api/fundamentals/{pair}.
func (h *FundamentalsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	pair := core.NormalizeInstrument(r.PathValue("pair"))
	if !validPair(pair) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidInput, fmt.Errorf("invalid currency pair %q", r.PathValue("pair"))))
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	response.JSON(w, http.StatusOK, h.overlay.Summary(ctx, pair))
}

func validPair(pair string) bool {
	if len(pair) < 6 || len(pair) > 12 {
		return false
	}
	for _, c := range pair {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
