package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// KafkaBus implements EventBus on Kafka. Each topic gets one writer;
// each subscription runs a consumer-group reader.
type KafkaBus struct {
	mu      sync.Mutex
	brokers []string
	groupID string
	writers map[string]*kafkago.Writer
	subs    map[string]*kafkaSubscription
	closed  bool
}

type kafkaSubscription struct {
	id     string
	topic  string
	reader *kafkago.Reader
	cancel context.CancelFunc
	done   chan struct{}
	bus    *KafkaBus
}

// NewKafkaBus creates a Kafka-backed event bus.
func NewKafkaBus(cfg domain.EventBusConfig) (*KafkaBus, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("kafka bus requires at least one broker")
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "scamsniper-workers"
	}
	slog.Info("kafka bus configured", "brokers", cfg.KafkaBrokers, "group", groupID)
	return &KafkaBus{
		brokers: cfg.KafkaBrokers,
		groupID: groupID,
		writers: make(map[string]*kafkago.Writer),
		subs:    make(map[string]*kafkaSubscription),
	}, nil
}

// Publish writes the message envelope to topic, keyed by message ID.
func (b *KafkaBus) Publish(ctx context.Context, topic string, payload []byte) error {
	w, err := b.writer(topic)
	if err != nil {
		return err
	}

	msg := newMessage(topic, payload)
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := w.WriteMessages(ctx, kafkago.Message{Key: []byte(msg.ID), Value: data}); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer-group reader for topic. Offsets are committed
// only after the handler succeeds.
func (b *KafkaBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{
		id:    uuid.New().String(),
		topic: topic,
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:  b.brokers,
			Topic:    topic,
			GroupID:  b.groupID,
			MinBytes: 1,
			MaxBytes: 10 * 1024 * 1024,
		}),
		cancel: cancel,
		done:   make(chan struct{}),
		bus:    b,
	}
	b.subs[sub.id] = sub

	go sub.consume(subCtx, handler)
	return sub, nil
}

func (s *kafkaSubscription) consume(ctx context.Context, handler domain.MessageHandler) {
	defer close(s.done)

	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			slog.Error("kafka fetch failed", "topic", s.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var msg domain.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			slog.Error("failed to unmarshal kafka message", "topic", m.Topic, "offset", m.Offset, "error", err)
			_ = s.reader.CommitMessages(ctx, m)
			continue
		}

		if err := handleWithRetry(ctx, handler, &msg, kafkaHandlerAttempts, kafkaRetryBackoff); err != nil {
			if ctx.Err() != nil {
				// uncommitted; redelivered to the group after restart
				return
			}
			slog.Error("handler failed, dropping message",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"attempts", kafkaHandlerAttempts,
				"error", err,
			)
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			slog.Error("commit error", "topic", m.Topic, "offset", m.Offset, "error", err)
		}
	}
}

// Handler retry policy for Kafka subscriptions. A group commits offsets
// in order, so a failed message is retried in place before moving on.
const (
	kafkaHandlerAttempts = 3
	kafkaRetryBackoff    = 500 * time.Millisecond
)

// handleWithRetry calls handler up to attempts times with a linear backoff.
// It returns the last error, or ctx's error if cancelled while waiting.
func handleWithRetry(ctx context.Context, handler domain.MessageHandler, msg *domain.Message, attempts int, backoff time.Duration) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		slog.Warn("handler error, retrying", "topic", msg.Topic, "attempt", i, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i) * backoff):
		}
	}
	return err
}

// Ping dials the first reachable broker.
func (b *KafkaBus) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range b.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

// Close stops all readers and flushes the writers.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	writers := b.writers
	b.subs = make(map[string]*kafkaSubscription)
	b.writers = make(map[string]*kafkago.Writer)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	var firstErr error
	for topic, w := range writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing writer for topic %s: %w", topic, err)
		}
	}
	return firstErr
}

func (b *KafkaBus) writer(topic string) (*kafkago.Writer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}
	if w, ok := b.writers[topic]; ok {
		return w, nil
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(b.brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	b.writers[topic] = w
	return w, nil
}

func (s *kafkaSubscription) stop() {
	s.cancel()
	<-s.done
	if err := s.reader.Close(); err != nil {
		slog.Warn("closing kafka reader", "topic", s.topic, "error", err)
	}
}

// Unsubscribe stops the reader.
func (s *kafkaSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	_, ok := s.bus.subs[s.id]
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()

	if ok {
		s.stop()
	}
	return nil
}

// Topic returns the subscribed topic.
func (s *kafkaSubscription) Topic() string {
	return s.topic
}
