package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/config"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testTopics() config.TopicConfig {
	return config.TopicConfig{
		EventCreated:       "events.event.created",
		EventUpdated:       "events.event.updated",
		EventDeleted:       "events.event.deleted",
		AttendeeRegistered: "events.attendee.registered",
		AttendeeRemoved:    "events.attendee.removed",
	}
}

func TestActivityPublisher_RoutesByType(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	w := &fakeWriter{}
	pub := NewActivityPublisher(&Producer{Writer: w, Logger: log}, testTopics(), log)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, models.Activity{Type: models.ActivityEventCreated, EntityID: 4, EventID: 4, ActorID: 1, OccurredAt: at}))
	require.NoError(t, pub.Publish(ctx, models.Activity{Type: models.ActivityAttendeeRemoved, EntityID: 9, EventID: 4, ActorID: 2, OccurredAt: at}))

	require.Len(t, w.messages, 2)
	assert.Equal(t, "events.event.created", w.messages[0].Topic)
	assert.Equal(t, "4", string(w.messages[0].Key))
	assert.Equal(t, "events.attendee.removed", w.messages[1].Topic)

	var decoded models.Activity
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &decoded))
	assert.Equal(t, models.ActivityAttendeeRemoved, decoded.Type)
	assert.Equal(t, int64(9), decoded.EntityID)
	assert.Equal(t, int64(2), decoded.ActorID)
}

func TestActivityPublisher_UnknownTypeAndWriteError(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewActivityPublisher(&Producer{Writer: w, Logger: log}, testTopics(), log)

	assert.Error(t, pub.Publish(context.Background(), models.Activity{Type: "event.archived"}))
	assert.EqualError(t, pub.Publish(context.Background(), models.Activity{Type: models.ActivityEventDeleted}), "broker down")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Logger: logger.NewWithWriter(io.Discard)}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), models.Activity{}))
}

type fakeReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumer_DecodesAndSkipsGarbage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	good, err := json.Marshal(models.Activity{Type: models.ActivityEventUpdated, EntityID: 3})
	require.NoError(t, err)
	reader := &fakeReader{cancel: cancel, messages: []kafka.Message{
		{Topic: "events.event.updated", Value: []byte("{oops")},
		{Topic: "events.event.updated", Value: good},
	}}
	c := &Consumer{reader: reader, log: logger.NewWithWriter(io.Discard)}

	var got []models.Activity
	err = c.Start(ctx, func(topic string, a models.Activity) {
		assert.Equal(t, "events.event.updated", topic)
		got = append(got, a)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].EntityID)
	assert.NoError(t, c.Close())
}

func TestEnsureTopicsExist_NoBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"x"}, logger.NewWithWriter(io.Discard)))
}
