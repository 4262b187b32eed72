package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

const defaultKafkaRetry = time.Second

// KafkaPublisher writes JSON-encoded events to a Kafka topic, keyed by the
// asset key so every change to one asset lands on the same partition.
// Subscribe reads the same topic through a consumer group.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string

	// consumer side; group is dialled on the first Subscribe unless injected
	brokers []string
	groupID string
	config  *sarama.Config
	retry   time.Duration
	mu      sync.Mutex
	group   sarama.ConsumerGroup
}

var (
	_ Publisher  = (*KafkaPublisher)(nil)
	_ Subscriber = (*KafkaPublisher)(nil)
)

type KafkaOption func(*KafkaPublisher)

// WithConsumerGroup makes Subscribe use group instead of dialling the brokers.
func WithConsumerGroup(group sarama.ConsumerGroup) KafkaOption {
	return func(k *KafkaPublisher) {
		k.group = group
	}
}

// WithConsumeRetry sets the pause between failed consume sessions.
func WithConsumeRetry(d time.Duration) KafkaOption {
	return func(k *KafkaPublisher) {
		if d > 0 {
			k.retry = d
		}
	}
}

// NewKafkaPublisher dials the brokers in cfg.
func NewKafkaPublisher(cfg Config) (*KafkaPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("missing Kafka brokers for events (MEDIA_EVENTS_KAFKA_BROKERS)")
	}
	config := kafkaConfig(cfg)
	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	k := NewKafkaPublisherWithProducer(producer, cfg.Namespace, cfg.Channel)
	k.brokers = cfg.KafkaBrokers
	k.groupID = cfg.KafkaGroupID
	k.config = config
	return k, nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, namespace, topic string, opts ...KafkaOption) *KafkaPublisher {
	if topic == "" {
		topic = DefaultChannel
	}
	if namespace != "" {
		topic = namespace + "." + topic
	}
	k := &KafkaPublisher{producer: producer, topic: topic, retry: defaultKafkaRetry}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func kafkaConfig(cfg Config) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = cfg.KafkaClientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 200 * time.Millisecond
	config.Producer.Compression = sarama.CompressionSnappy

	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = true
	config.Consumer.Offsets.AutoCommit.Interval = 250 * time.Millisecond

	config.Net.TLS.Enable = cfg.KafkaTLS
	if cfg.KafkaUsername != "" {
		config.Net.SASL.Enable = true
		config.Net.SASL.User = cfg.KafkaUsername
		config.Net.SASL.Password = cfg.KafkaPassword
	}
	return config
}

// Channel returns the fully qualified topic name.
func (k *KafkaPublisher) Channel() string {
	return k.topic
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.Key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", k.topic, err)
	}
	return nil
}

// Subscribe joins the consumer group and delivers events to handler until
// ctx is done or the publisher is closed. Offsets are marked after the
// handler returns, whatever its result; failures go to onError.
func (k *KafkaPublisher) Subscribe(ctx context.Context, handler Handler, onError func(error)) error {
	group, err := k.consumerGroup()
	if err != nil {
		return err
	}

	go func() {
		for err := range group.Errors() {
			report(onError, fmt.Errorf("kafka consumer error on %s: %w", k.topic, err))
		}
	}()

	cgh := &consumerGroupHandler{topic: k.topic, handler: handler, onError: onError}
	go func() {
		for {
			err := group.Consume(ctx, []string{k.topic}, cgh)
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
				return
			}
			if err != nil {
				report(onError, fmt.Errorf("kafka consume session on %s failed: %w", k.topic, err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(k.retry):
				}
			}
		}
	}()
	return nil
}

func (k *KafkaPublisher) consumerGroup() (sarama.ConsumerGroup, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.group != nil {
		return k.group, nil
	}
	if len(k.brokers) == 0 {
		return nil, errors.New("missing Kafka brokers for events (MEDIA_EVENTS_KAFKA_BROKERS)")
	}
	group, err := sarama.NewConsumerGroup(k.brokers, k.groupID, k.config)
	if err != nil {
		return nil, fmt.Errorf("failed to join kafka consumer group %s: %w", k.groupID, err)
	}
	k.group = group
	return group, nil
}

func (k *KafkaPublisher) Close() error {
	k.mu.Lock()
	group := k.group
	k.mu.Unlock()

	var errs []error
	if group != nil {
		errs = append(errs, group.Close())
	}
	errs = append(errs, k.producer.Close())
	return errors.Join(errs...)
}

type consumerGroupHandler struct {
	topic   string
	handler Handler
	onError func(error)
}

func (h *consumerGroupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerGroupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				report(h.onError, fmt.Errorf("failed to decode event on %s: %w", h.topic, err))
			} else if err := h.handler(ctx, ev); err != nil {
				report(h.onError, fmt.Errorf("event handler failed on %s: %w", h.topic, err))
			}
			sess.MarkMessage(msg, "")
		}
	}
}
