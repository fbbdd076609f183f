// Package events publishes export lifecycle events to Kafka so downstream
// services (notification, archival) can react without polling the API.
// With no brokers configured the Nop publisher keeps the scheduler quiet.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"reelforge/config"
)

// ExportEvent is the wire shape of one lifecycle notification.
type ExportEvent struct {
	TaskID    string    `json:"task_id"`
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Ref       string    `json:"ref,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits export lifecycle events.
type Publisher interface {
	PublishExport(ctx context.Context, ev ExportEvent) error
	Close() error
}

// Nop is the publisher used when Kafka is not configured.
type Nop struct{}

func (Nop) PublishExport(ctx context.Context, ev ExportEvent) error { return nil }
func (Nop) Close() error                                            { return nil }

// KafkaPublisher emits events through a sarama sync producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisherFromEnv returns a KafkaPublisher when KAFKA_BROKERS is set
// (comma-separated), otherwise the Nop publisher.
func NewPublisherFromEnv() (Publisher, error) {
	brokers := strings.TrimSpace(config.GetEnvOrDefault("KAFKA_BROKERS", ""))
	if brokers == "" {
		return Nop{}, nil
	}
	topic := config.GetEnvOrDefault("KAFKA_EXPORT_TOPIC", "reelforge.exports")
	return NewKafkaPublisher(strings.Split(brokers, ","), topic)
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	log.Printf("Kafka export events enabled (topic: %s)", topic)
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (k *KafkaPublisher) PublishExport(ctx context.Context, ev ExportEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode export event: %w", err)
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.SessionID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish export event: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}
