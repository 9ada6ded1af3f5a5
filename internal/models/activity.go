package models

import (
	"time"
)

type ActivityType string

const (
	ActivityEventCreated       ActivityType = "event.created"
	ActivityEventUpdated       ActivityType = "event.updated"
	ActivityEventDeleted       ActivityType = "event.deleted"
	ActivityAttendeeRegistered ActivityType = "attendee.registered"
	ActivityAttendeeRemoved    ActivityType = "attendee.removed"
)

// Activity is the message published to Kafka after a successful write.
type Activity struct {
	Type       ActivityType `json:"type"`
	EntityID   int64        `json:"entity_id"`
	EventID    int64        `json:"event_id"`
	ActorID    int64        `json:"actor_id"`
	OccurredAt time.Time    `json:"occurred_at"`
	Payload    interface{}  `json:"payload,omitempty"`
}
