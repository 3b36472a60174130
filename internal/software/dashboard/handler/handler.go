package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"fleet-tracker/internal/common/contextx"
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/ports"
)

// DashboardHTTPHandler adapts HTTP requests to the DashboardService.
type DashboardHTTPHandler struct {
	svc      ports.DashboardService
	logger   *log.Logger
	liveView http.Handler
}

// NewDashboardHTTPHandler wires an HTTP handler around the service. liveView
// serves GET /ws and may be nil.
func NewDashboardHTTPHandler(svc ports.DashboardService, logger *log.Logger, liveView http.Handler) *DashboardHTTPHandler {
	if logger == nil {
		logger = log.Nop()
	}
	return &DashboardHTTPHandler{svc: svc, logger: logger, liveView: liveView}
}

// RegisterRoutes mounts dashboard endpoints on the provided mux.
func (handler *DashboardHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handler.handleHealth)
	mux.HandleFunc("GET /units", handler.handleListUnits)
	mux.HandleFunc("GET /overview", handler.handleOverview)
	mux.HandleFunc("POST /units/{id}/track", handler.handleTrack)
	mux.HandleFunc("GET /tracking", handler.handleTracking)
	mux.HandleFunc("DELETE /tracking", handler.handleStopTracking)
	mux.HandleFunc("GET /tracking/speed", handler.handleSpeedSeries)
	mux.HandleFunc("DELETE /tracking/notification", handler.handleClearNotification)
	if handler.liveView != nil {
		mux.Handle("GET /ws", handler.liveView)
	}
}

// jsonResponse encodes data before writing so a failed encode can still
// become a 500.
func (handler *DashboardHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	buf := []byte("{}")
	if data != nil {
		var err error
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *DashboardHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	switch {
	case status >= 500:
		handler.logger.Error(ctx, "http_internal_error", msg, err, nil)
	default:
		handler.logger.Warn(ctx, "request_failed", msg, map[string]any{"status": status, "error": errString(err)})
	}

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID takes X-Request-ID from the request or generates one.
func (handler *DashboardHTTPHandler) withReqID(r *http.Request) context.Context {
	if reqID := strings.TrimSpace(r.Header.Get("X-Request-ID")); reqID != "" {
		return contextx.WithRequestID(r.Context(), reqID)
	}
	return contextx.WithNewRequestID(r.Context())
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
