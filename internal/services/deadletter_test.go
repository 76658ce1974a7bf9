package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"billing-api/pkg/logging"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	logging.InitLogging()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDeadLetterRecorder_Record(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewDeadLetterRecorder(client, 72*time.Hour, nil)

	event := stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
	}
	recorder.Record(context.Background(), event, errors.New("upsert subscription sub_1: database unavailable"))

	assert.Equal(t, int64(1), recorder.PendingCount(context.Background()))

	raw, err := client.LRange(context.Background(), "billing:webhook:dead_letter", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var record DeadLetterRecord
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "evt_1", record.EventID)
	assert.Equal(t, "checkout.session.completed", record.EventType)
	assert.Contains(t, record.Error, "database unavailable")
	assert.NotEmpty(t, record.ReceivedAt)

	// The list carries a retention TTL.
	assert.Greater(t, mr.TTL("billing:webhook:dead_letter"), time.Duration(0))
}

func TestDeadLetterRecorder_MarkProcessed(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewDeadLetterRecorder(client, 0, nil)

	assert.False(t, recorder.MarkProcessed(context.Background(), "evt_1"), "first delivery is new")
	assert.True(t, recorder.MarkProcessed(context.Background(), "evt_1"), "replay is a duplicate")
	assert.False(t, recorder.MarkProcessed(context.Background(), "evt_2"), "distinct event is new")

	// Dedupe keys expire so the store does not grow without bound.
	assert.Greater(t, mr.TTL("billing:webhook:event:evt_1"), time.Duration(0))
}

func TestDeadLetterRecorder_RedisDownTreatsEventAsNew(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewDeadLetterRecorder(client, 0, nil)
	mr.Close()

	// Reprocessing is safe, dropping is not.
	assert.False(t, recorder.MarkProcessed(context.Background(), "evt_1"))
}

func TestDeadLetterRecorder_NilSafety(t *testing.T) {
	logging.InitLogging()

	var nilRecorder *DeadLetterRecorder
	assert.False(t, nilRecorder.MarkProcessed(context.Background(), "evt_1"))
	nilRecorder.Record(context.Background(), stripe.Event{ID: "evt_1"}, errors.New("boom"))
	assert.Zero(t, nilRecorder.PendingCount(context.Background()))

	noClient := NewDeadLetterRecorder(nil, 0, nil)
	assert.False(t, noClient.MarkProcessed(context.Background(), "evt_1"))
	noClient.Record(context.Background(), stripe.Event{ID: "evt_1"}, errors.New("boom"))
	assert.Zero(t, noClient.PendingCount(context.Background()))
}

func TestDeadLetterRecorder_ListIsCapped(t *testing.T) {
	_, client := setupRedis(t)
	recorder := NewDeadLetterRecorder(client, 0, nil)

	for i := 0; i < 5; i++ {
		recorder.Record(context.Background(), stripe.Event{ID: "evt_1"}, errors.New("boom"))
	}
	count, err := client.LLen(context.Background(), "billing:webhook:dead_letter").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}
