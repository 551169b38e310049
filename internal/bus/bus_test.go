package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		got := make(chan *domain.Message, 1)

		_, err := bus.Subscribe(ctx, domain.TopicScanCompleted, func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, domain.TopicScanCompleted, []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		select {
		case msg := <-got:
			if string(msg.Payload) != "hello" {
				t.Errorf("expected payload 'hello', got '%s'", msg.Payload)
			}
			if msg.Topic != domain.TopicScanCompleted {
				t.Errorf("expected topic %s, got %s", domain.TopicScanCompleted, msg.Topic)
			}
			if msg.ID == "" {
				t.Error("expected message id")
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("TopicIsolation", func(t *testing.T) {
		var completed, flagged atomic.Int32

		bus.Subscribe(ctx, "iso.completed", func(ctx context.Context, msg *domain.Message) error {
			completed.Add(1)
			return nil
		})
		bus.Subscribe(ctx, "iso.flagged", func(ctx context.Context, msg *domain.Message) error {
			flagged.Add(1)
			return nil
		})

		bus.Publish(ctx, "iso.completed", []byte("msg1"))
		waitFor(t, func() bool { return completed.Load() == 1 })

		if flagged.Load() != 0 {
			t.Errorf("flagged topic should receive 0 messages, got %d", flagged.Load())
		}
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, _ := bus.Subscribe(ctx, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})

		bus.Publish(ctx, "unsub.topic", []byte("msg1"))
		waitFor(t, func() bool { return count.Load() == 1 })

		if err := sub.Unsubscribe(); err != nil {
			t.Fatalf("unsubscribe failed: %v", err)
		}

		bus.Publish(ctx, "unsub.topic", []byte("msg2"))
		time.Sleep(30 * time.Millisecond)

		if count.Load() != 1 {
			t.Errorf("expected 1 message after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var count atomic.Int32

		for i := 0; i < 3; i++ {
			bus.Subscribe(ctx, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
				count.Add(1)
				return nil
			})
		}

		bus.Publish(ctx, "multi.topic", []byte("broadcast"))
		waitFor(t, func() bool { return count.Load() == 3 })
	})

	t.Run("HandlerErrorDoesNotStopSubscription", func(t *testing.T) {
		var count atomic.Int32

		bus.Subscribe(ctx, "err.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return context.DeadlineExceeded
		})

		bus.Publish(ctx, "err.topic", []byte("1"))
		bus.Publish(ctx, "err.topic", []byte("2"))
		waitFor(t, func() bool { return count.Load() == 2 })
	})

	t.Run("Ping", func(t *testing.T) {
		if err := bus.Ping(ctx); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, _ := bus.Subscribe(ctx, "my.topic", func(ctx context.Context, msg *domain.Message) error {
			return nil
		})
		if sub.Topic() != "my.topic" {
			t.Errorf("expected topic 'my.topic', got '%s'", sub.Topic())
		}
	})
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(10)
	ctx := context.Background()

	bus.Subscribe(ctx, "close.topic", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	if err := bus.Publish(ctx, "close.topic", []byte("data")); err == nil {
		t.Error("expected error publishing to closed bus")
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error on closed bus")
	}
	if _, err := bus.Subscribe(ctx, "close.topic", nil); err == nil {
		t.Error("expected error subscribing to closed bus")
	}
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer b.Close()

		if _, ok := b.(*ChannelBus); !ok {
			t.Error("expected ChannelBus for channel type")
		}
	})

	t.Run("KafkaRequiresBrokers", func(t *testing.T) {
		if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
			t.Error("expected error without brokers")
		}
	})

	t.Run("KafkaType", func(t *testing.T) {
		b, err := New(domain.EventBusConfig{Type: "kafka", KafkaBrokers: []string{"127.0.0.1:9092"}})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		kb, ok := b.(*KafkaBus)
		if !ok {
			t.Fatal("expected KafkaBus for kafka type")
		}
		if kb.groupID != "scamsniper-workers" {
			t.Errorf("expected default group id, got %s", kb.groupID)
		}
		if err := b.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
		if err := b.Publish(context.Background(), "t", nil); err == nil {
			t.Error("expected error publishing to closed kafka bus")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.EventBusConfig{Type: "rabbitmq"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(10000)
	defer bus.Close()

	ctx := context.Background()
	var count atomic.Int32

	bus.Subscribe(ctx, "load.topic", func(ctx context.Context, msg *domain.Message) error {
		count.Add(1)
		return nil
	})

	const total = 1000
	for i := 0; i < total; i++ {
		if err := bus.Publish(ctx, "load.topic", []byte("event")); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	waitFor(t, func() bool { return count.Load() == total })
}

func TestHandleWithRetry(t *testing.T) {
	msg := &domain.Message{Topic: domain.TopicScanCompleted}
	errStore := errors.New("store unavailable")

	t.Run("recovers on a later attempt", func(t *testing.T) {
		var calls int32
		handler := func(ctx context.Context, m *domain.Message) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errStore
			}
			return nil
		}

		if err := handleWithRetry(context.Background(), handler, msg, 3, time.Millisecond); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		var calls int32
		handler := func(ctx context.Context, m *domain.Message) error {
			atomic.AddInt32(&calls, 1)
			return errStore
		}

		err := handleWithRetry(context.Background(), handler, msg, 3, time.Millisecond)
		if !errors.Is(err, errStore) {
			t.Fatalf("expected handler error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("stops when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls int32
		handler := func(ctx context.Context, m *domain.Message) error {
			atomic.AddInt32(&calls, 1)
			cancel()
			return errStore
		}

		err := handleWithRetry(ctx, handler, msg, 3, time.Hour)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}
