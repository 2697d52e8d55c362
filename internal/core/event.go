package core

import "time"

const (
	EventRecorded EventType = "recorded"
	EventDeleted  EventType = "deleted"
)

// EventType tells downstream mirrors what happened to a transaction.
type EventType string

// TransactionEvent is emitted after a record is created or deleted.
type TransactionEvent struct {
	Type        EventType
	Transaction Transaction
	At          time.Time
}
