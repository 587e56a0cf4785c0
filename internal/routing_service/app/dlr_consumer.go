package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/routemesh/sms-routing/internal/platform/messagebroker"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

// DLRSubject is where the HTTP callback handler republishes raw delivery
// receipts. Consumers subscribe with a wildcard so per-connector suffixes
// stay possible.
const (
	DLRSubject         = "dlr.raw"
	DLRSubjectWildcard = "dlr.raw.>"
	dlrQueueGroup      = "routing_dlr_consumers"
)

// DLRConsumer drains raw delivery receipts off the broker, deduplicates
// them in windows, and feeds the status counters. The gateway delivers
// receipts at least once, so the raw stream overcounts without this stage.
type DLRConsumer struct {
	broker messagebroker.NATSClient
	logger *slog.Logger

	window time.Duration

	mu    sync.Mutex
	batch []domain.DLRRecord
}

func NewDLRConsumer(broker messagebroker.NATSClient, window time.Duration, logger *slog.Logger) *DLRConsumer {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &DLRConsumer{
		broker: broker,
		window: window,
		logger: logger.With("service_component", "DLRConsumer"),
	}
}

// Run subscribes and processes until the context is cancelled. Buffered
// records are flushed once per window and a final time on shutdown.
func (c *DLRConsumer) Run(ctx context.Context) error {
	sub, err := c.broker.Subscribe(ctx, DLRSubjectWildcard, dlrQueueGroup, c.handleMessage)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	c.logger.InfoContext(ctx, "DLR consumer started", "subject", DLRSubjectWildcard, "queue_group", dlrQueueGroup)

	ticker := time.NewTicker(c.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.flush(ctx)
			c.logger.InfoContext(ctx, "DLR consumer stopped")
			return nil
		case <-ticker.C:
			c.flush(ctx)
		}
	}
}

func (c *DLRConsumer) handleMessage(msg messagebroker.Message) {
	var record domain.DLRRecord
	if err := json.Unmarshal(msg.Data(), &record); err != nil {
		c.logger.Warn("Dropping malformed DLR message", "subject", msg.Subject(), "error", err)
		return
	}
	if record.Data.ID == "" {
		c.logger.Warn("Dropping DLR message without an id", "subject", msg.Subject())
		return
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	dlrRecordsCounter.WithLabelValues("raw").Inc()
	c.mu.Lock()
	c.batch = append(c.batch, record)
	c.mu.Unlock()
}

// flush deduplicates the buffered window and counts the unique records by
// reported message status.
func (c *DLRConsumer) flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.batch
	c.batch = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	unique := DedupeDLRRecords(batch)
	dlrRecordsCounter.WithLabelValues("unique").Add(float64(len(unique)))
	dlrRecordsCounter.WithLabelValues("duplicate").Add(float64(len(batch) - len(unique)))
	for _, record := range unique {
		status := record.Data.MessageStatus
		if status == "" {
			status = "unknown"
		}
		dlrStatusCounter.WithLabelValues(status).Inc()
	}

	c.logger.DebugContext(ctx, "DLR window flushed", "raw", len(batch), "unique", len(unique))
}
