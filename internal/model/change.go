package model

import (
	"fmt"
	"time"
)

// ChangeNotification is published after an outbox event has been replayed
// into the secondary store.
type ChangeNotification struct {
	OutboxID      int64         `json:"outbox_id"`
	AggregateType AggregateType `json:"aggregate_type"`
	AggregateID   int64         `json:"aggregate_id"`
	EventType     EventType     `json:"event_type"`
	Outcome       string        `json:"outcome"` // upserted|removed|skipped
	ProcessedUTC  time.Time     `json:"processed_utc"`
}

// Key partitions notifications by aggregate instance.
func (n ChangeNotification) Key() string {
	return fmt.Sprintf("%s:%d", n.AggregateType, n.AggregateID)
}
