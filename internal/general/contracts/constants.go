package contracts

// Telemetry channel events
const (
	EventGPSUpdate = "gps_update"
)

// Exchanges
const (
	ExchangeTelemetryFanout = "telemetry_fanout"
)

// Queues
const (
	QueueTelemetryArchive = "telemetry_archive"
)

// Producers
const (
	ProducerSimulator = "fleet-simulator"
)
