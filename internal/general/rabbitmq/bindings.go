package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"fleet-tracker/internal/general/contracts"
)

// declareTopology declares the telemetry fanout exchange and the durable
// archive queue bound to it, so mandatory publishes always route.
func declareTopology(ch *amqp.Channel, exchange string) error {
	if exchange == "" {
		exchange = contracts.ExchangeTelemetryFanout
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(contracts.QueueTelemetryArchive, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", contracts.QueueTelemetryArchive, err)
	}
	if err := ch.QueueBind(contracts.QueueTelemetryArchive, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", contracts.QueueTelemetryArchive, exchange, err)
	}
	return nil
}
