package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleet-tracker/internal/analytics"
	"fleet-tracker/internal/common/contextx"
	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/domain/unit"
	"fleet-tracker/internal/general/config"
	"fleet-tracker/internal/general/rabbitmq"
	"fleet-tracker/internal/general/telemetry"
	"fleet-tracker/internal/roster"
	"fleet-tracker/internal/tracking/store"
)

var ErrNoRequestableUnit = errors.New("roster has no unit available for tracking")

// Run tracks one unit until its path is replayed and motion settles, then
// logs a summary. An empty unitID picks the first available unit.
func Run(ctx context.Context, configPath, unitID string) error {
	logger := log.New("simulator")
	ctx = contextx.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, map[string]any{"path": configPath})
		return err
	}

	provider, closeRoster, err := roster.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "roster_open_failed", "Failed to open roster", err, nil)
		return err
	}
	defer closeRoster()

	target, err := pickUnit(ctx, provider, unitID)
	if err != nil {
		logger.Error(ctx, "unit_select_failed", "Failed to select a unit", err, map[string]any{"unit_id": unitID})
		return err
	}

	channel := telemetry.NewChannel()
	defer channel.Close()

	stopExport, err := rabbitmq.StartExport(ctx, cfg.RabbitMQ, channel, logger)
	if err != nil {
		logger.Error(ctx, "telemetry_export_failed", "Failed to start telemetry export", err, nil)
		return err
	}
	defer stopExport()

	surface := &logSurface{ctx: ctx, logger: logger}
	st := store.New(channel,
		store.WithLogger(logger),
		store.WithSurface(surface),
		store.WithConfig(cfg.StoreConfig()),
	)
	defer st.Close(context.WithoutCancel(ctx))

	if err := st.BeginTracking(ctx, target); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "simulation_interrupted", "Simulation interrupted", nil)
	case <-st.Done():
		settleFor := cfg.Tracking.DebounceWindow + cfg.Tracking.TickInterval
		select {
		case <-ctx.Done():
		case <-time.After(settleFor):
		}
	}

	summarize(ctx, logger, st, surface, provider)
	return nil
}

func pickUnit(ctx context.Context, p roster.Provider, id string) (unit.Unit, error) {
	if id != "" {
		u, err := roster.Lookup(ctx, p, id)
		if err != nil {
			return unit.Unit{}, err
		}
		if !u.Requestable() {
			return unit.Unit{}, fmt.Errorf("unit %s is %s", u.ID, u.Status)
		}
		return u, nil
	}

	units, err := p.ListUnits(ctx)
	if err != nil {
		return unit.Unit{}, err
	}
	for _, u := range units {
		if u.Requestable() {
			return u, nil
		}
	}
	return unit.Unit{}, ErrNoRequestableUnit
}

func summarize(ctx context.Context, logger *log.Logger, st *store.Store, surface *logSurface, p roster.Provider) {
	snap := st.Snapshot()
	frames, polyline, last := surface.stats()

	var distance float64
	if series := analytics.SpeedSeries(snap.Samples); len(series) > 0 {
		distance = series[len(series)-1].CumulativeKM
	}
	details := map[string]any{
		"session_id":    snap.SessionID,
		"samples":       len(snap.Samples),
		"status":        snap.Status,
		"speed_label":   analytics.SpeedLabel(snap.Status, snap.Samples),
		"distance_km":   distance,
		"frames":        frames,
		"polyline":      polyline,
		"last_position": last,
	}
	if units, err := p.ListUnits(ctx); err == nil {
		details["overview"] = analytics.FleetOverview(units, len(snap.Samples))
	}
	logger.Info(ctx, "simulation_summary", "Simulation finished", details)
}
