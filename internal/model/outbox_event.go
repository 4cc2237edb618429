package model

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	EventCreated EventType = "Created"
	EventUpdated EventType = "Updated"
	EventDeleted EventType = "Deleted"
)

func (t EventType) String() string { return string(t) }

// OutboxStatus is the replay state of an outbox event.
type OutboxStatus string

const (
	OutboxPending      OutboxStatus = "pending"
	OutboxProcessed    OutboxStatus = "processed"
	OutboxDeadLettered OutboxStatus = "dead_lettered"
)

// OutboxEvent is a change record written in the same transaction as the
// primary-store mutation that produced it.
type OutboxEvent struct {
	ID            int64           `db:"id" json:"id"`
	AggregateType AggregateType   `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   int64           `db:"aggregate_id" json:"aggregate_id"`
	EventType     EventType       `db:"event_type" json:"event_type"`
	PayloadJSON   json.RawMessage `db:"payload_json" json:"payload_json,omitempty"`
	CreatedUTC    time.Time       `db:"created_utc" json:"created_utc"`
	ProcessedUTC  *time.Time      `db:"processed_utc" json:"processed_utc,omitempty"`
	RetryCount    int             `db:"retry_count" json:"retry_count"`
	LastError     *string         `db:"last_error" json:"last_error,omitempty"`
	Status        OutboxStatus    `db:"status" json:"status"`
	ClaimedBy     *string         `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedUntil  *time.Time      `db:"claimed_until" json:"claimed_until,omitempty"`
}

// Processed reports whether the event has been replayed successfully.
func (e OutboxEvent) Processed() bool { return e.ProcessedUTC != nil }

// OutboxClaim describes a lease on a batch of outbox events: rows whose
// claim expired before Now may be taken by Owner until Until.
type OutboxClaim struct {
	Owner string
	Now   time.Time
	Until time.Time
}
