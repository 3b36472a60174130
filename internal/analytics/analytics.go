// Package analytics turns delivered samples and the roster into the
// figures the dashboard charts and cards display.
package analytics

import (
	"fmt"
	"math"
	"time"

	"fleet-tracker/internal/domain/geo"
	"fleet-tracker/internal/domain/unit"
)

// SpeedPoint is one chart point.
type SpeedPoint struct {
	Time         time.Time `json:"time"`
	SpeedKMH     float64   `json:"speed_kmh"`
	CumulativeKM float64   `json:"cumulative_km"`
}

// SpeedSeries maps samples to chart points, accumulating haversine distance
// between consecutive samples.
func SpeedSeries(samples []geo.Sample) []SpeedPoint {
	out := make([]SpeedPoint, 0, len(samples))
	var total float64
	for i, s := range samples {
		if i > 0 {
			total += geo.HaversineKM(samples[i-1].Coordinate, s.Coordinate)
		}
		out = append(out, SpeedPoint{Time: s.Timestamp, SpeedKMH: s.Speed, CumulativeKM: total})
	}
	return out
}

// SpeedLabel is the "current speed" readout: zero unless the unit is moving
// and has delivered samples.
func SpeedLabel(status unit.Status, samples []geo.Sample) string {
	if status != unit.StatusMoving || len(samples) == 0 {
		return "0 km/h"
	}
	return fmt.Sprintf("%.1f km/h", samples[len(samples)-1].Speed)
}

// Overview is the fleet summary card set.
type Overview struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Maintenance   int `json:"maintenance"`
	EfficiencyPct int `json:"efficiency_pct"`
}

// FleetOverview counts the roster. At most one unit is tracked, so Active is
// 1 exactly when samples have been delivered.
func FleetOverview(units []unit.Unit, delivered int) Overview {
	o := Overview{Total: len(units)}
	if delivered > 0 {
		o.Active = 1
	}
	for _, u := range units {
		if u.Status == unit.StatusMaintenance {
			o.Maintenance++
		}
	}
	if serviceable := o.Total - o.Maintenance; serviceable > 0 {
		o.EfficiencyPct = int(math.Round(float64(o.Active) / float64(serviceable) * 100))
	}
	return o
}
