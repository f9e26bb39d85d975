package events

import (
	"context"
	"encoding/json"
	"fmt"

	"vsgifts-api/internal/models"
)

// producer is satisfied by *client.KafkaProducer.
type producer interface {
	ProduceMessage(ctx context.Context, key, value []byte, headers map[string]string) error
}

// KafkaSink writes JSON events keyed by account id so a consumer sees each
// account's transitions in order.
type KafkaSink struct {
	producer producer
}

func NewKafkaSink(p producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, event models.SecurityEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return s.producer.ProduceMessage(ctx, []byte(event.AccountID), value, map[string]string{
		"event_type": string(event.Type),
	})
}
