package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// ActivityPublisher maps activities to their topics.
type ActivityPublisher struct {
	producer publisher
	topics   config.TopicConfig
	log      *logger.Logger
}

func NewActivityPublisher(p publisher, topics config.TopicConfig, log *logger.Logger) *ActivityPublisher {
	return &ActivityPublisher{producer: p, topics: topics, log: log}
}

func (a *ActivityPublisher) topicFor(t models.ActivityType) (string, bool) {
	switch t {
	case models.ActivityEventCreated:
		return a.topics.EventCreated, true
	case models.ActivityEventUpdated:
		return a.topics.EventUpdated, true
	case models.ActivityEventDeleted:
		return a.topics.EventDeleted, true
	case models.ActivityAttendeeRegistered:
		return a.topics.AttendeeRegistered, true
	case models.ActivityAttendeeRemoved:
		return a.topics.AttendeeRemoved, true
	}
	return "", false
}

// Publish sends one activity keyed by its entity id.
func (a *ActivityPublisher) Publish(ctx context.Context, activity models.Activity) error {
	topic, ok := a.topicFor(activity.Type)
	if !ok {
		return fmt.Errorf("no topic for activity %q", activity.Type)
	}
	value, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	return a.producer.Publish(ctx, topic, strconv.FormatInt(activity.EntityID, 10), value)
}

// NoopPublisher drops every activity. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.Activity) error { return nil }
