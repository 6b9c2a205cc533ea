package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chainpay-gateway/config"
	"chainpay-gateway/internal/core/ports"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KafkaNotifier implements ports.Notifier by publishing merchant
// notification events to a Kafka topic. Messages are keyed by merchant
// id so one merchant's notifications stay ordered within a partition.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	log      zerolog.Logger
}

// notificationEvent is the wire format on the notify topic.
type notificationEvent struct {
	MerchantID string    `json:"merchant_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewKafkaNotifier creates a sync producer against the configured
// brokers. WaitForAll: a notification is either on the broker or the
// caller knows it is not.
func NewKafkaNotifier(cfg config.KafkaConfig, log zerolog.Logger) (*KafkaNotifier, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaNotifier{
		producer: producer,
		topic:    cfg.NotifyTopic,
		log:      log,
	}, nil
}

// Notify publishes one notification event.
func (n *KafkaNotifier) Notify(_ context.Context, merchantID uuid.UUID, notification ports.Notification) error {
	event := notificationEvent{
		MerchantID: merchantID.String(),
		Title:      notification.Title,
		Message:    notification.Message,
		Kind:       notification.Kind,
		CreatedAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(merchantID.String()),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	n.log.Debug().
		Str("merchant_id", merchantID.String()).
		Str("kind", notification.Kind).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("notification published")

	return nil
}

// Close shuts the producer down.
func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

var _ ports.Notifier = (*KafkaNotifier)(nil)
