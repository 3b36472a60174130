package rabbitmq

import (
	"context"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/general/config"
	"fleet-tracker/internal/general/telemetry"
)

// StartExport connects to RabbitMQ and mirrors ch to the telemetry exchange
// when cfg.Enabled is set. The returned func stops the mirror and closes the
// connection; it is a no-op when export is disabled.
func StartExport(ctx context.Context, cfg config.RabbitMQ, ch *telemetry.Channel, logger *log.Logger) (func(), error) {
	if !cfg.Enabled {
		logger.Info(ctx, "telemetry_export_disabled", "Telemetry export to RabbitMQ is disabled", nil)
		return func() {}, nil
	}

	client, err := ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	mirror := NewMirror(client, client.Exchange(), logger)
	if err := mirror.Attach(ctx, ch); err != nil {
		client.Close()
		return nil, err
	}

	return func() {
		mirror.Close()
		sent, dropped, failed := mirror.Stats()
		logger.Info(ctx, "telemetry_export_stopped", "Telemetry export stopped", map[string]any{
			"sent":    sent,
			"dropped": dropped,
			"failed":  failed,
		})
		client.Close()
	}, nil
}
