package domain

import "time"

// AuditEvent is the envelope mirrored to Kafka for every event the relay
// accepts, so downstream consumers get the full stream without touching
// the database.
type AuditEvent struct {
	Service    string                 `json:"service"`
	EventType  string                 `json:"event_type"`
	ClientSlug string                 `json:"client_slug"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}
