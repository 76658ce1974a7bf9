package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

const (
	deadLetterKey     = "billing:webhook:dead_letter"
	deadLetterMaxSize = 10000
	dedupeKeyPrefix   = "billing:webhook:event:"
	dedupeTTL         = 24 * time.Hour
)

// DeadLetterRecord is the durable trace of an absorbed processing failure.
// The webhook response is a success either way, so these records are the only
// recoverable evidence that an event needs reconciliation.
type DeadLetterRecord struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	Error      string `json:"error"` // error class + message only, never payload dumps
	ReceivedAt string `json:"received_at"`
}

// DeadLetterRecorder keeps a Redis-backed dead-letter list plus best-effort
// event-id dedupe. Redis being down degrades both to no-ops: the webhook must
// keep acknowledging regardless.
type DeadLetterRecorder struct {
	client *redis.Client
	ttl    time.Duration
	mailer *AlertMailer
}

// NewDeadLetterRecorder creates a recorder. The client and mailer may be nil.
func NewDeadLetterRecorder(client *redis.Client, ttl time.Duration, mailer *AlertMailer) *DeadLetterRecorder {
	return &DeadLetterRecorder{
		client: client,
		ttl:    ttl,
		mailer: mailer,
	}
}

// MarkProcessed records the event id and reports whether it was seen before.
// On any Redis failure the event is treated as new: the transition handlers
// are idempotent, so reprocessing is safe while dropping an event is not.
func (d *DeadLetterRecorder) MarkProcessed(ctx context.Context, eventID string) bool {
	if d == nil || d.client == nil || eventID == "" {
		return false
	}

	firstTime, err := d.client.SetNX(ctx, dedupeKeyPrefix+eventID, time.Now().Unix(), dedupeTTL).Result()
	if err != nil {
		logging.Warnf("Event dedupe unavailable - type: %T, message: %v", err, err)
		return false
	}
	if !firstTime {
		logging.Infof("Duplicate webhook event %s, already processed", eventID)
	}
	return !firstTime
}

// Record pushes a dead-letter entry for a failed event and fires an operator
// alert when a mailer is configured. Failures here are logged and swallowed.
func (d *DeadLetterRecorder) Record(ctx context.Context, event stripe.Event, cause error) {
	if d == nil {
		return
	}

	record := DeadLetterRecord{
		ID:         uuid.NewString(),
		EventID:    event.ID,
		EventType:  string(event.Type),
		Error:      fmt.Sprintf("%T: %v", cause, cause),
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if d.client != nil {
		data, err := json.Marshal(record)
		if err != nil {
			logging.Errorf("Failed to marshal dead letter record: %v", err)
			return
		}

		pipe := d.client.TxPipeline()
		pipe.LPush(ctx, deadLetterKey, data)
		pipe.LTrim(ctx, deadLetterKey, 0, deadLetterMaxSize-1)
		if d.ttl > 0 {
			pipe.Expire(ctx, deadLetterKey, d.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			logging.Errorf("Failed to push dead letter record %s - type: %T, message: %v", record.ID, err, err)
		} else {
			logging.Warnf("Dead-lettered event - record_id: %s, event_id: %s, type: %s",
				record.ID, record.EventID, record.EventType)
		}
	}

	if d.mailer != nil && d.mailer.Enabled() {
		go func() {
			if err := d.mailer.SendDeadLetterAlert(record); err != nil {
				logging.Errorf("Failed to send dead letter alert - type: %T, message: %v", err, err)
			}
		}()
	}
}

// PendingCount returns the current dead-letter backlog size, for the health
// surface.
func (d *DeadLetterRecorder) PendingCount(ctx context.Context) int64 {
	if d == nil || d.client == nil {
		return 0
	}
	count, err := d.client.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return 0
	}
	return count
}
