package service

import (
	"context"
	"fmt"

	"fleet-tracker/internal/analytics"
	"fleet-tracker/internal/domain/unit"
)

// ListUnits returns the roster with the active unit's transient status
// overlaid. The roster itself is never modified.
func (service *dashboardService) ListUnits(ctx context.Context) ([]unit.Unit, error) {
	units, err := service.roster.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	active, ok := service.store.ActiveUnit()
	if !ok {
		return units, nil
	}
	for i := range units {
		if units[i].ID == active.ID {
			units[i].Status = active.Status
		}
	}
	return units, nil
}

// Overview summarizes the fleet for the overview cards.
func (service *dashboardService) Overview(ctx context.Context) (analytics.Overview, error) {
	units, err := service.roster.ListUnits(ctx)
	if err != nil {
		return analytics.Overview{}, fmt.Errorf("list units: %w", err)
	}
	return analytics.FleetOverview(units, len(service.store.Samples())), nil
}
