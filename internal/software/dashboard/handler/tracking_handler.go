package handler

import "net/http"

// --- Handler: GET /tracking ---

func (handler *DashboardHTTPHandler) handleTracking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r)
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.Tracking(ctx))
}

// --- Handler: DELETE /tracking ---

func (handler *DashboardHTTPHandler) handleStopTracking(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r)
	handler.svc.StopTracking(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// --- Handler: GET /tracking/speed ---

func (handler *DashboardHTTPHandler) handleSpeedSeries(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r)
	handler.jsonResponse(ctx, w, http.StatusOK, handler.svc.SpeedSeries(ctx))
}

// --- Handler: DELETE /tracking/notification ---

func (handler *DashboardHTTPHandler) handleClearNotification(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r)
	type resp struct {
		Cleared bool `json:"cleared"`
	}
	handler.jsonResponse(ctx, w, http.StatusOK, resp{Cleared: handler.svc.ClearNotification(ctx)})
}
