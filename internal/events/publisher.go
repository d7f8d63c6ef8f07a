package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/logger"

	"github.com/Farmer96/LuckGen/internal/models"
)

// DrawEvent is the message emitted after a draw has been persisted.
type DrawEvent struct {
	ConfigID string             `json:"configId"`
	Record   *models.DrawRecord `json:"record"`
}

// Publisher announces completed draws to downstream consumers.
type Publisher interface {
	PublishDraw(ctx context.Context, configID string, record *models.DrawRecord) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishDraw(context.Context, string, *models.DrawRecord) error { return nil }

// NewKafkaProducer creates a synchronous producer that waits for all
// in-sync replicas.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Infof("Kafka producer connected to %v", brokers)
	return producer, nil
}

// Kafka publishes draw events to a topic, keyed by participant phone so a
// participant's draws stay ordered within one partition.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafka creates a Kafka publisher.
func NewKafka(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

// PublishDraw sends one DrawEvent.
func (k *Kafka) PublishDraw(_ context.Context, configID string, record *models.DrawRecord) error {
	payload, err := json.Marshal(DrawEvent{ConfigID: configID, Record: record})
	if err != nil {
		return fmt.Errorf("encode draw event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(record.UserPhone),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send draw event: %w", err)
	}
	return nil
}

// Close releases the producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}
