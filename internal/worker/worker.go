// Package worker records completed scans from the event bus into the scan history.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Worker consumes scan events asynchronously.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	recorded   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to completed scans.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicScanCompleted, w.handleScan)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", domain.TopicScanCompleted, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("scan worker started", "topic", domain.TopicScanCompleted)
	return nil
}

func (w *Worker) handleScan(ctx context.Context, msg *domain.Message) error {
	var ev domain.ScanEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		w.failed.Add(1)
		slog.Error("failed to parse scan event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	scan := &domain.Scan{
		Type:      ev.Type,
		Input:     ev.Input,
		Verdict:   ev.Verdict,
		Score:     ev.Score,
		Timestamp: ev.Timestamp,
	}

	saved, err := w.repo.SaveScan(ctx, scan)
	if err != nil {
		w.failed.Add(1)
		slog.Error("failed to save scan",
			"message_id", msg.ID,
			"type", ev.Type,
			"error", err,
		)
		return err
	}
	if !saved {
		w.duplicates.Add(1)
		slog.Debug("duplicate scan skipped", "type", ev.Type, "timestamp", ev.Timestamp)
		return nil
	}

	w.recorded.Add(1)
	slog.Debug("scan recorded",
		"scan_id", scan.ID,
		"type", scan.Type,
		"verdict", scan.Verdict,
		"score", scan.Score,
	)
	return nil
}

// Stop unsubscribes and cancels in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("scan worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Recorded          int64    `json:"recorded"`
	Duplicates        int64    `json:"duplicates"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	w.mu.Unlock()

	return Stats{
		SubscriptionCount: len(topics),
		Topics:            topics,
		Recorded:          w.recorded.Load(),
		Duplicates:        w.duplicates.Load(),
		Failed:            w.failed.Load(),
	}
}
