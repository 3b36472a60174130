package service

import (
	"context"
	"fmt"

	"fleet-tracker/internal/analytics"
	"fleet-tracker/internal/domain/unit"
	"fleet-tracker/internal/ports"
	"fleet-tracker/internal/roster"
)

// RequestTracking starts a session for the unit. Only available units that
// are not already being tracked can be requested.
func (service *dashboardService) RequestTracking(ctx context.Context, unitID string) (unit.Unit, error) {
	u, err := roster.Lookup(ctx, service.roster, unitID)
	if err != nil {
		return unit.Unit{}, err
	}
	if !u.Requestable() {
		return unit.Unit{}, fmt.Errorf("%w: %s is %s", ports.ErrUnitUnavailable, u.ID, u.Status)
	}
	if live, ok := service.store.LiveUnitID(); ok && live == u.ID {
		return unit.Unit{}, fmt.Errorf("%w: %s is already tracked", ports.ErrUnitUnavailable, u.ID)
	}

	if err := service.store.BeginTracking(ctx, u); err != nil {
		return unit.Unit{}, err
	}
	service.logger.Info(ctx, "tracking_requested", "Tracking requested", map[string]any{"unit_id": u.ID})
	return u, nil
}

func (service *dashboardService) StopTracking(ctx context.Context) {
	service.store.EndTracking(ctx)
}

// Tracking returns the current session state with the speed readout.
func (service *dashboardService) Tracking(ctx context.Context) ports.TrackingView {
	st := service.store.Snapshot()
	return ports.TrackingView{
		State:      st,
		SpeedLabel: analytics.SpeedLabel(st.Status, st.Samples),
	}
}

func (service *dashboardService) SpeedSeries(ctx context.Context) []analytics.SpeedPoint {
	return analytics.SpeedSeries(service.store.Samples())
}

func (service *dashboardService) ClearNotification(ctx context.Context) bool {
	return service.store.ClearNotification()
}
