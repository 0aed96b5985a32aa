package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// OutBoxEntry is a committed-but-not-yet-delivered event. A nil PublishedAt
// means pending; the relay sets it exactly once after a confirmed send.
type OutBoxEntry struct {
	ID            int             `db:"id" json:"id"`
	AggregateType string          `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id" json:"aggregate_id"`
	EventType     string          `db:"event_type" json:"event_type"`
	EventID       string          `db:"event_id" json:"event_id"`
	Payload       json.RawMessage `db:"payload" json:"payload"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	PublishedAt   sql.NullTime    `db:"published_at" json:"published_at"`
}

// ProcessedEvent marks an event whose business effect has been durably
// applied by the owning service.
type ProcessedEvent struct {
	EventID     string    `db:"event_id" json:"event_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	ProcessedAt time.Time `db:"processed_at" json:"processed_at"`
}
