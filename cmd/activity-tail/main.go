// Command activity-tail follows the activity topics and logs every event and
// attendee change published by the service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(logger.Options{Service: "ms-events-activity"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	groupID := cfg.Kafka.GroupID
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), groupID, log)
	defer consumer.Close()

	log.Info("KAFKA", fmt.Sprintf("Tailing %v as group %s", cfg.Kafka.Topics.All(), groupID))
	err = consumer.Start(ctx, func(topic string, a models.Activity) {
		payload, _ := json.Marshal(a.Payload)
		log.LogKafka("CONSUME", topic, fmt.Sprintf("%s entity=%d event=%d actor=%d at=%s payload=%s",
			a.Type, a.EntityID, a.EventID, a.ActorID, a.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), payload))
	})
	if err != nil {
		log.Fatal("KAFKA", fmt.Sprintf("Consumer stopped: %v", err))
	}
	log.Info("APP", "Activity tail stopped")
}
