package pipeline

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-ingest/adapters/gologger"
	"github.com/goliatone/go-order-ingest/core"
)

const maxWebhookBodyBytes = 256 << 10

// WebhookHandler exposes the receiver over HTTP with basic auth. The
// response carries the request id and elapsed time so callers can trace
// the notification through the pipeline.
type WebhookHandler struct {
	receiver *Receiver
	config   core.WebhookConfig
	logger   core.Logger

	Now func() time.Time
}

func NewWebhookHandler(receiver *Receiver, config core.WebhookConfig) *WebhookHandler {
	_, logger := gologger.Resolve("pipeline.webhook", nil, nil)
	return &WebhookHandler{
		receiver: receiver,
		config:   config,
		logger:   logger,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type webhookResponse struct {
	Message        string  `json:"message"`
	OrderID        string  `json:"order_id,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
	ResponseTimeMS float64 `json:"response_time_ms"`
}

type webhookError struct {
	Error string `json:"error"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.Now()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, webhookError{Error: "method not allowed"})
		return
	}
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="webhook"`)
		writeJSON(w, http.StatusUnauthorized, webhookError{Error: "unauthorized"})
		return
	}

	var notification core.Notification
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err := decoder.Decode(&notification); err != nil {
		writeJSON(w, http.StatusBadRequest, webhookError{Error: "invalid request body"})
		return
	}

	result, err := h.receiver.Receive(r.Context(), notification)
	if err != nil {
		status := core.ErrorStatusCode(err)
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			status = http.StatusInternalServerError
		}
		h.logger.Error("webhook rejected",
			"order_id", notification.OrderID,
			"status", status,
			"error", err)
		writeJSON(w, status, webhookError{Error: err.Error()})
		return
	}

	elapsed := float64(h.Now().Sub(start).Microseconds()) / 1000.0
	writeJSON(w, http.StatusOK, webhookResponse{
		Message:        "Order received and queued for processing",
		OrderID:        result.OrderID,
		RequestID:      result.RequestID,
		ResponseTimeMS: elapsed,
	})
}

// authorized compares basic auth credentials in constant time. A handler
// configured without credentials accepts every request, which is the
// local-development mode.
func (h *WebhookHandler) authorized(r *http.Request) bool {
	wantUser := strings.TrimSpace(h.config.Username)
	wantPass := h.config.Password
	if wantUser == "" && wantPass == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1
	return userMatch && passMatch
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var _ http.Handler = (*WebhookHandler)(nil)
