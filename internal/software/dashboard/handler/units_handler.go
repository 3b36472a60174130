package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fleet-tracker/internal/ports"
	"fleet-tracker/internal/roster"
	"fleet-tracker/internal/tracking/path"
)

// --- Handler: GET /health ---

func (handler *DashboardHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status string `json:"status"`
	}
	handler.jsonResponse(r.Context(), w, http.StatusOK, resp{Status: "ok"})
}

// --- Handler: GET /units ---

func (handler *DashboardHTTPHandler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(handler.withReqID(r), 5*time.Second)
	defer cancel()

	units, err := handler.svc.ListUnits(ctx)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to list units", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, units)
}

// --- Handler: GET /overview ---

func (handler *DashboardHTTPHandler) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(handler.withReqID(r), 5*time.Second)
	defer cancel()

	overview, err := handler.svc.Overview(ctx)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to fetch fleet overview", err)
		return
	}
	handler.jsonResponse(ctx, w, http.StatusOK, overview)
}

// --- Handler: POST /units/{id}/track ---

func (handler *DashboardHTTPHandler) handleTrack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(handler.withReqID(r), 5*time.Second)
	defer cancel()

	id := r.PathValue("id")
	_, err := handler.svc.RequestTracking(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, roster.ErrUnitNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, "unit not found", err)
		return
	case errors.Is(err, ports.ErrUnitUnavailable):
		handler.httpError(ctx, w, http.StatusConflict, "unit is not available for tracking", err)
		return
	case errors.Is(err, path.ErrInvalidStart):
		handler.httpError(ctx, w, http.StatusUnprocessableEntity, "Error requesting tractor", err)
		return
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "Error requesting tractor", err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusAccepted, handler.svc.Tracking(ctx))
}
