package pubsub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/wes-io-live/commentary-service/pkg/log"
)

// LifecycleTopic carries every session lifecycle channel, keyed by session id
// so one session's events stay on one partition.
const LifecycleTopic = channelPrefix + "-lifecycle"

const (
	defaultPartitions   = 4
	defaultFlushTimeout = 5 * time.Second
	headerEventType     = "event_type"
)

// channelToTopicAndKey maps "<prefix>:session:<id>:<kind>" to topic
// "<prefix>-<kind>" with the session id as key.
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "session" || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("channel %q is not a session channel", channel)
	}
	kind := strings.ReplaceAll(parts[3], "_", "-")
	return parts[0] + "-" + kind, parts[2], nil
}

// KafkaPubSub produces lifecycle events to Kafka.
type KafkaPubSub struct {
	producer     *kafka.Producer
	flushTimeout time.Duration
	done         chan struct{}
}

// NewKafkaPubSub creates the producer and makes sure the lifecycle topic
// exists. Topic creation failures are logged, not returned.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = defaultFlushTimeout
	}
	k := &KafkaPubSub{producer: p, flushTimeout: flush, done: make(chan struct{})}
	go k.watchDeliveries()

	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = defaultPartitions
	}
	if err := createTopic(p, LifecycleTopic, partitions); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", LifecycleTopic).Msg("could not ensure kafka topic")
	}

	return k, nil
}

func createTopic(p *kafka.Producer, topic string, partitions int) error {
	admin, err := kafka.NewAdminClientFromProducer(p)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return err
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("create %s: %s", r.Topic, r.Error.String())
		}
	}
	return nil
}

func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.done)
	for e := range k.producer.Events() {
		m, ok := e.(*kafka.Message)
		if !ok || m.TopicPartition.Error == nil {
			continue
		}
		l := pkglog.L()
		evt := l.Error().Err(m.TopicPartition.Error).Str(pkglog.FieldSessionID, string(m.Key))
		if m.TopicPartition.Topic != nil {
			evt = evt.Str("topic", *m.TopicPartition.Topic)
		}
		evt.Msg("kafka delivery failed")
	}
}

// Publish enqueues the event. Delivery is reported asynchronously.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topic, key, err := channelToTopicAndKey(channel)
	if err != nil {
		return err
	}
	data, err := event.encode()
	if err != nil {
		return err
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Headers:        []kafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
		Timestamp:      event.Timestamp,
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes queued messages, then shuts the producer down.
func (k *KafkaPubSub) Close() error {
	if left := k.producer.Flush(int(k.flushTimeout / time.Millisecond)); left > 0 {
		l := pkglog.L()
		l.Warn().Int("pending", left).Msg("kafka producer closed with undelivered messages")
	}
	k.producer.Close()
	<-k.done
	return nil
}
