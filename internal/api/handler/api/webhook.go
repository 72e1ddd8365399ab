package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sigrelay/internal/api/response"
	"github.com/newthinker/sigrelay/internal/core"
	"github.com/newthinker/sigrelay/internal/metrics"
	"github.com/newthinker/sigrelay/internal/pattern"
	"github.com/newthinker/sigrelay/internal/storage/signal"
)

const (
	maxBodyBytes          = 1 << 20
	defaultNotifyTimeout  = 30 * time.Second
	webhookSuccessMessage = "Signal processed and enhanced"
)

// Dispatcher fans an enhanced signal out to downstream channels.
type Dispatcher interface {
	NotifyAll(ctx context.Context, signal core.EnhancedSignal) map[string]error
	Len() int
}

// WebhookResponse is the body returned for an accepted signal.
type WebhookResponse struct {
	Status             string        `json:"status"`
	Message            string        `json:"message"`
	OriginalConfidence float64       `json:"original_confidence"`
	EnhancedConfidence float64       `json:"enhanced_confidence"`
	Improvement        float64       `json:"improvement"`
	ExpectedReturn     float64       `json:"expected_return"`
	SignalStrength     core.Strength `json:"signal_strength"`
	ProcessingTime     time.Time     `json:"processing_time"`
}

// TestSignalResponse is the body returned by the diagnostic endpoint.
type TestSignalResponse struct {
	TestSignal        core.RawSignal       `json:"test_signal"`
	EnhancedSignal    *core.EnhancedSignal `json:"enhanced_signal"`
	ProcessingSuccess bool                 `json:"processing_success"`
	Error             string               `json:"error,omitempty"`
}

// WebhookHandler receives alerts, enhances them and records the result.
type WebhookHandler struct {
	enhancer  *pattern.Enhancer
	history   *signal.History
	notifiers Dispatcher
	metrics   *metrics.Registry
	logger    *zap.Logger

	notifyTimeout time.Duration
	pending       sync.WaitGroup
	now           func() time.Time
}

// NewWebhookHandler creates a webhook handler. notifiers, reg and logger
// may be nil.
func NewWebhookHandler(enhancer *pattern.Enhancer, history *signal.History, notifiers Dispatcher, reg *metrics.Registry, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		enhancer:      enhancer,
		history:       history,
		notifiers:     notifiers,
		metrics:       reg,
		logger:        logger,
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
	}
}

// TradingView handles POST /webhook/tradingview.
func (h *WebhookHandler) TradingView(w http.ResponseWriter, r *http.Request) {
	raw, err := core.DecodeRawSignal(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.RecordEnhanceFailure()
		h.logger.Warn("rejected webhook payload", zap.Error(err))
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	sig, err := h.enhancer.Enhance(raw)
	if err != nil {
		h.metrics.RecordEnhanceFailure()
		status := response.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook processing error", zap.Error(err))
			if !errors.Is(err, core.ErrEnhancementFailed) {
				err = core.WrapError(core.ErrEnhancementFailed, err)
			}
		} else {
			h.logger.Warn("rejected webhook signal", zap.Error(err))
		}
		response.Error(w, status, err)
		return
	}

	h.history.Record(*sig)
	h.metrics.RecordEnhanced(sig.Matched, string(sig.Strength))
	h.metrics.SetHistorySize(h.history.Len())

	h.logger.Info("signal recorded",
		zap.String("pair", sig.Pair),
		zap.String("action", sig.Action),
		zap.Float64("original_confidence", sig.OriginalConfidence),
		zap.Float64("enhanced_confidence", sig.EnhancedConfidence),
	)

	response.JSON(w, http.StatusOK, WebhookResponse{
		Status:             "success",
		Message:            webhookSuccessMessage,
		OriginalConfidence: sig.OriginalConfidence,
		EnhancedConfidence: sig.EnhancedConfidence,
		Improvement:        sig.ConfidenceDelta,
		ExpectedReturn:     sig.ExpectedReturn,
		SignalStrength:     sig.Strength,
		ProcessingTime:     h.now(),
	})

	h.dispatch(*sig)
}

// dispatch notifies downstream channels in the background. Failures are
// logged and counted by the dispatcher.
func (h *WebhookHandler) dispatch(sig core.EnhancedSignal) {
	if h.notifiers == nil || h.notifiers.Len() == 0 {
		return
	}

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.notifyTimeout)
		defer cancel()

		if errs := h.notifiers.NotifyAll(ctx, sig); len(errs) > 0 {
			h.logger.Warn("some notifications failed",
				zap.String("pair", sig.Pair),
				zap.Int("failed", len(errs)),
			)
		}
	}()
}

// Wait blocks until in-flight notifications finish.
func (h *WebhookHandler) Wait() {
	h.pending.Wait()
}

// TestSignal handles POST /test-signal. It runs a canned signal through the
// enhancer without recording or notifying.
func (h *WebhookHandler) TestSignal(w http.ResponseWriter, r *http.Request) {
	raw := CannedSignal()

	resp := TestSignalResponse{TestSignal: raw.Clone()}
	sig, err := h.enhancer.Enhance(raw)
	if err != nil {
		h.logger.Error("test signal failed", zap.Error(err))
		resp.Error = err.Error()
	} else {
		resp.EnhancedSignal = sig
		resp.ProcessingSuccess = true
	}

	response.JSON(w, http.StatusOK, resp)
}

// CannedSignal is the diagnostic input used by TestSignal.
func CannedSignal() core.RawSignal {
	return core.RawSignal{
		"ticker":        "GBPUSD",
		"timeframe":     "DAILY",
		"action":        "BUY",
		"confidence":    0.72,
		"position_size": 2.0,
		"price":         1.2650,
	}
}
