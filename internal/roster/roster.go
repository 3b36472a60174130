package roster

import (
	"context"
	"errors"
	"fmt"

	"fleet-tracker/internal/domain/geo"
	"fleet-tracker/internal/domain/unit"
)

var ErrUnitNotFound = errors.New("roster: unit not found")

// Provider lists the fleet. Results are read-only snapshots.
type Provider interface {
	ListUnits(ctx context.Context) ([]unit.Unit, error)
}

// Lookup finds one unit by id.
func Lookup(ctx context.Context, p Provider, id string) (unit.Unit, error) {
	units, err := p.ListUnits(ctx)
	if err != nil {
		return unit.Unit{}, fmt.Errorf("list units: %w", err)
	}
	for _, u := range units {
		if u.ID == id {
			return u, nil
		}
	}
	return unit.Unit{}, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
}

// Static serves a fixed in-memory roster.
type Static struct {
	units []unit.Unit
}

func NewStatic(units ...unit.Unit) *Static {
	return &Static{units: append([]unit.Unit(nil), units...)}
}

func (s *Static) ListUnits(ctx context.Context) ([]unit.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]unit.Unit(nil), s.units...), nil
}

// DemoFleet is the built-in three-tractor roster.
func DemoFleet() *Static {
	return NewStatic(
		unit.Unit{
			ID: "1", Name: "John Deere 8R 410", Model: "8R Series", Status: unit.StatusAvailable,
			Location: geo.Coordinate{Lat: 40.7829, Lng: -73.9654}, LastSeen: "2 minutes ago",
		},
		unit.Unit{
			ID: "2", Name: "Case IH Steiger 620", Model: "Steiger Series", Status: unit.StatusAvailable,
			Location: geo.Coordinate{Lat: 40.7589, Lng: -73.9851}, LastSeen: "5 minutes ago",
		},
		unit.Unit{
			ID: "3", Name: "New Holland T9.700", Model: "T9 Series", Status: unit.StatusAvailable,
			Location: geo.Coordinate{Lat: 40.7505, Lng: -73.9934}, LastSeen: "1 minute ago",
		},
	)
}
