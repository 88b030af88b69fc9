package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tattoo-ai-api/internal/config"
	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/pkg/logger"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCalculateBackoff(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, b.CalculateBackoff(0))
	assert.Equal(t, 2*time.Second, b.CalculateBackoff(1))
	assert.Equal(t, 4*time.Second, b.CalculateBackoff(2))
	assert.Equal(t, 5*time.Second, b.CalculateBackoff(3))
	assert.Equal(t, 5*time.Second, b.CalculateBackoff(10))
}

func TestBackoffFromConfig(t *testing.T) {
	b := BackoffFromConfig(config.BackoffConfig{Initial: 200 * time.Millisecond})
	assert.Equal(t, 200*time.Millisecond, b.Initial)
	assert.Equal(t, time.Minute, b.Max)
	assert.Equal(t, 2.0, b.Multiplier)
}

func TestConsumerGroupWithPrefix(t *testing.T) {
	assert.Equal(t, ConsumerGroup("dev-cg-record-writer"), ConsumerGroupRecordWriter.WithPrefix("dev-"))
	assert.Equal(t, ConsumerGroupRecordWriter, ConsumerGroupRecordWriter.WithPrefix(""))
}

func TestProducer_PublishRecord(t *testing.T) {
	rdb := newTestRedis(t)
	p := NewProducer(rdb, 0)

	rec := entity.NewPromptRecord("user-1", entity.RecordKindEnhance, "rose", "rose, fine line")
	rec.SetConfidence(90)

	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-42")
	id, err := p.PublishRecord(ctx, rec)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	entries, err := rdb.XRange(ctx, string(StreamPromptRecords), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	msg := decode(entries[0])
	require.NotNil(t, msg)
	assert.Equal(t, MessageTypePromptRecord, msg.Type)
	assert.Equal(t, "user-1", msg.UserID)
	assert.Equal(t, "req-42", msg.Meta("request_id"))
	assert.Equal(t, "enhance", msg.Meta("kind"))

	got, err := msg.Record()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 90, got.Confidence)
}

func TestConsumer_DeliversToHandler(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamPromptRecords,
		Group:        ConsumerGroupRecordWriter,
		ConsumerName: "test-1",
		BlockTimeout: 50 * time.Millisecond,
	})

	var got atomic.Value
	c.RegisterHandler(MessageTypePromptRecord, func(ctx context.Context, msg *Message) error {
		rec, err := msg.Record()
		if err != nil {
			return err
		}
		got.Store(rec.FinalPrompt)
		return nil
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	rec := entity.NewPromptRecord("user-1", entity.RecordKindTransfer, "rose", "rose in blackwork")
	_, err := NewProducer(rdb, 0).PublishRecord(ctx, rec)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		v, _ := got.Load().(string)
		return v == "rose in blackwork"
	}, 2*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		p, err := rdb.XPending(ctx, string(StreamPromptRecords), string(ConsumerGroupRecordWriter)).Result()
		return err == nil && p.Count == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestConsumer_StartTwice(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamPromptRecords,
		Group:        ConsumerGroupRecordWriter,
		ConsumerName: "test-1",
		BlockTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	assert.Error(t, c.Start(ctx))
}

func TestConsumer_MovesToDLQAfterRetryLimit(t *testing.T) {
	rdb := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(rdb, ConsumerConfig{
		Stream:       StreamPromptRecords,
		Group:        ConsumerGroupRecordWriter,
		ConsumerName: "test-1",
		BlockTimeout: 50 * time.Millisecond,
		RetryLimit:   1,
	})
	c.RegisterHandler(MessageTypePromptRecord, func(ctx context.Context, msg *Message) error {
		return errors.New("database unavailable")
	})
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	rec := entity.NewPromptRecord("user-1", entity.RecordKindEnhance, "rose", "rose, fine line")
	_, err := NewProducer(rdb, 0).PublishRecord(ctx, rec)
	require.NoError(t, err)

	dlq := StreamPromptRecords.DLQStream()
	assert.Eventually(t, func() bool {
		n, err := rdb.XLen(ctx, dlq).Result()
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)

	entries, err := rdb.XRange(ctx, dlq, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	fields := entries[0].Values
	assert.Equal(t, "database unavailable", fields["error"])
	assert.Equal(t, string(StreamPromptRecords), fields["original_stream"])

	// 死信保留原始信封
	var env Message
	require.NoError(t, json.Unmarshal([]byte(fields["data"].(string)), &env))
	assert.Equal(t, rec.ID, env.ID)
}

type memStore struct {
	records []*entity.PromptRecord
	err     error
}

func (m *memStore) Create(_ context.Context, rec *entity.PromptRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

type recordingInvalidator struct{ users []string }

func (r *recordingInvalidator) InvalidateHistory(_ context.Context, userID string) error {
	r.users = append(r.users, userID)
	return nil
}

func TestRecordWriter(t *testing.T) {
	rec := entity.NewPromptRecord("user-9", entity.RecordKindTransfer, "rose", "realistic rose")
	rec.Applied = []string{"rule:traditional->realistic"}
	msg, err := NewRecordMessage(rec)
	require.NoError(t, err)

	t.Run("stores and invalidates", func(t *testing.T) {
		store := &memStore{}
		inv := &recordingInvalidator{}
		require.NoError(t, RecordWriter(store, inv)(context.Background(), msg))

		require.Len(t, store.records, 1)
		assert.Equal(t, rec.ID, store.records[0].ID)
		assert.Equal(t, []string{"rule:traditional->realistic"}, []string(store.records[0].Applied))
		assert.Equal(t, []string{"user-9"}, inv.users)
	})

	t.Run("store error skips invalidation", func(t *testing.T) {
		inv := &recordingInvalidator{}
		err := RecordWriter(&memStore{err: errors.New("db down")}, inv)(context.Background(), msg)
		assert.Error(t, err)
		assert.Empty(t, inv.users)
	})

	t.Run("malformed payload", func(t *testing.T) {
		bad := &Message{ID: "x", Type: MessageTypePromptRecord, Payload: json.RawMessage(`{"id":""}`)}
		err := RecordWriter(&memStore{}, nil)(context.Background(), bad)
		assert.ErrorIs(t, err, errMalformedRecord)
	})
}
