package contracts

import "fleet-tracker/internal/domain/geo"

// GPSUpdate is emitted by the feed scheduler once per tick under EventGPSUpdate.
type GPSUpdate struct {
	Sample geo.Sample `json:"sample"`
	UnitID string     `json:"unit_id"`
	Seq    int        `json:"seq"` // index of the sample within its path
	// SessionID names the tracking session whose feed emitted the update.
	// Consumers drop updates stamped with any other session.
	SessionID string `json:"session_id,omitempty"`
}

// TelemetryExport is the body mirrored to ExchangeTelemetryFanout.
type TelemetryExport struct {
	GPSUpdate
	ChannelSeq uint64 `json:"channel_seq"`
	Envelope
}
