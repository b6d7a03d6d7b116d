package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/davidbz/ember/internal/domain"
	"github.com/davidbz/ember/internal/observability"
	"github.com/davidbz/ember/internal/sse"
)

const bearerPrefix = "Bearer "

// Handler handles HTTP requests.
type Handler struct {
	relay *domain.RelayService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(relay *domain.RelayService) *Handler {
	return &Handler{
		relay: relay,
	}
}

// HandleChat relays one chat request upstream and streams the reply as SSE.
// Failures before the upstream stream opens are answered with a JSON error
// body; failures after that travel in-band as error frames.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	credential := bearerToken(r.Header.Get("Authorization"))
	if credential == "" {
		writeError(w, http.StatusUnauthorized, "Missing key")
		return
	}

	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.Credential = credential

	ctx = observability.WithModel(ctx, req.Model)

	logger := observability.FromContext(ctx)
	logger.Info("chat request received",
		observability.Int("messages", len(req.Messages)),
		observability.String("requested_model", req.Model),
	)

	writer, err := sse.NewWriter(w)
	if err != nil {
		logger.Error("streaming not supported", observability.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stream, err := h.relay.Open(ctx, &req)
	if err != nil {
		status := domain.HTTPStatus(err)
		logger.Error("relay request rejected", observability.Error(err), observability.Int("status", status))
		writeError(w, status, errorMessage(err))
		return
	}

	ctx = observability.WithProvider(ctx, stream.Provider)
	ctx = observability.WithModel(ctx, stream.Request.Model)

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	observability.RecordRelayRequest(strconv.Itoa(http.StatusOK))

	if err := h.relay.Pump(ctx, stream, writer); err != nil {
		observability.FromContext(ctx).Warn("stream ended early", observability.Error(err))
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}

func bearerToken(header string) string {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// errorMessage returns the provider's own message for upstream rejections.
func errorMessage(err error) string {
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Error()
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, status int, message string) {
	observability.RecordRelayRequest(strconv.Itoa(status))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
