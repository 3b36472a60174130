package ports

import (
	"context"
	"errors"

	"fleet-tracker/internal/analytics"
	"fleet-tracker/internal/domain/unit"
	"fleet-tracker/internal/tracking/store"
)

// ErrUnitUnavailable is returned when a unit cannot be tracked: it is under
// maintenance or already the active unit.
var ErrUnitUnavailable = errors.New("unit is not available for tracking")

// TrackingView is the live session as the dashboard shows it.
type TrackingView struct {
	store.State
	SpeedLabel string `json:"speed_label"`
}

// DashboardService is the use-case surface behind the dashboard API.
type DashboardService interface {
	ListUnits(ctx context.Context) ([]unit.Unit, error)
	Overview(ctx context.Context) (analytics.Overview, error)
	RequestTracking(ctx context.Context, unitID string) (unit.Unit, error)
	StopTracking(ctx context.Context)
	Tracking(ctx context.Context) TrackingView
	SpeedSeries(ctx context.Context) []analytics.SpeedPoint
	ClearNotification(ctx context.Context) bool
}
