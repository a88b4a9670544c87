package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NoticeMessage is the JSON payload published for each new notice.
type NoticeMessage struct {
	ID               string            `json:"id"`
	Key              string            `json:"key"`
	Target           string            `json:"target"`
	OrganizationName string            `json:"organization_name"`
	NoticeDate       string            `json:"notice_date"`
	Fields           map[string]string `json:"fields,omitempty"`
	DetectedAt       time.Time         `json:"detected_at"`
}

// KafkaNotifier publishes one message per notice, keyed by its NoticeKey so
// repeats of the same notice land on the same partition.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaNotifier connects a synchronous producer that waits for all
// in-sync replicas to acknowledge.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, cfg.Topic), nil
}

// NewKafkaNotifierWithProducer wraps an existing producer.
func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Name() string { return "kafka" }

func (k *KafkaNotifier) Notify(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msgs, err := k.messages(alert)
	if err != nil {
		return err
	}
	if err := k.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaNotifier) messages(alert Alert) ([]*sarama.ProducerMessage, error) {
	if len(alert.Keys) != len(alert.Notices) {
		return nil, fmt.Errorf("alert has %d notices but %d keys", len(alert.Notices), len(alert.Keys))
	}
	msgs := make([]*sarama.ProducerMessage, 0, len(alert.Notices))
	for i, n := range alert.Notices {
		body, err := json.Marshal(NoticeMessage{
			ID:               uuid.NewString(),
			Key:              string(alert.Keys[i]),
			Target:           alert.Target,
			OrganizationName: n.OrganizationName,
			NoticeDate:       n.NoticeDate,
			Fields:           n.RawRow,
			DetectedAt:       alert.DetectedAt.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode notice: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: k.topic,
			Key:   sarama.StringEncoder(alert.Keys[i]),
			Value: sarama.ByteEncoder(body),
		})
	}
	return msgs, nil
}

// Close flushes and closes the producer
func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
