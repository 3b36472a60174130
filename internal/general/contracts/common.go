package contracts

import "time"

// Envelope adds cross-cutting headers exported messages may carry.
type Envelope struct {
	CorrelationID string    `json:"correlation_id,omitempty"` // tracking session id
	Producer      string    `json:"producer,omitempty"`       // e.g. "fleet-simulator"
	SentAt        time.Time `json:"sent_at,omitempty"`
}
