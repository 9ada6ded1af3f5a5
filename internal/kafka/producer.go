package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-events/internal/logger"
	"ms-events/internal/metrics"
)

// MessageWriter is the part of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Logger *logger.Logger
}

// NewProducer builds an asynchronous producer. Topics are set per message,
// and delivery errors are reported through the logger.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			for _, m := range messages {
				if err == nil {
					metrics.KafkaMessagesTotal.WithLabelValues(m.Topic, "ok").Inc()
					continue
				}
				metrics.KafkaMessagesTotal.WithLabelValues(m.Topic, "error").Inc()
				log.Error("KAFKA", fmt.Sprintf("Failed to deliver message %s to %s: %v", m.Key, m.Topic, err))
			}
		},
	}
	return &Producer{Writer: writer, Logger: log}
}

// Publish streams one message keyed by key to topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("key=%s bytes=%d", key, len(value)))
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
