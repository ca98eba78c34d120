package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SirPen9uin/shop-api/pkg/kafka"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
)

var nopLogger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

type fakeUsers struct {
	upserted []models.User
	deleted  []int64
	err      error
	missing  bool
	// onDelete runs before a delete is applied, afterDelete once it is
	onDelete    func()
	afterDelete func()
}

func (f *fakeUsers) Upsert(_ context.Context, user *models.User) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, *user)
	return nil
}

func (f *fakeUsers) GetByID(context.Context, int64) (*models.User, error) {
	return nil, repositories.NotFound("not used")
}

func (f *fakeUsers) Delete(ctx context.Context, id int64) (*models.DeleteResult, error) {
	if f.onDelete != nil {
		f.onDelete()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.missing {
		return nil, repositories.NotFound("user %d not found", id)
	}
	f.deleted = append(f.deleted, id)
	if f.afterDelete != nil {
		f.afterDelete()
	}
	res := models.NewDeleteResult()
	res.Add("users", 1)
	return res, nil
}

// fakeDedupe honours cancellation like go-redis does.
type fakeDedupe struct {
	processed map[string]bool
}

func newFakeDedupe() *fakeDedupe {
	return &fakeDedupe{processed: map[string]bool{}}
}

func (f *fakeDedupe) Processed(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return f.processed[id], nil
}

func (f *fakeDedupe) MarkProcessed(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.processed[id] = true
	return nil
}

func event(t *testing.T, evt map[string]any) *kafka.IncomingMessage {
	t.Helper()
	value, err := json.Marshal(evt)
	require.NoError(t, err)
	return &kafka.IncomingMessage{Topic: "identity-events", Partition: 0, Offset: 7, Value: value}
}

func TestParseIdentityEvent(t *testing.T) {
	evt, err := event(t, map[string]any{"type": "user.created", "user_id": 5, "username": "ann"}).ParseIdentityEvent()
	require.NoError(t, err)
	assert.Equal(t, kafka.UserCreated, evt.Type)
	assert.Equal(t, int64(5), evt.UserID)
	assert.Equal(t, "identity-events/0/7", evt.EventID)

	_, err = event(t, map[string]any{"type": "user.renamed", "user_id": 5}).ParseIdentityEvent()
	require.Error(t, err)

	_, err = event(t, map[string]any{"type": "user.deleted"}).ParseIdentityEvent()
	require.Error(t, err)

	_, err = (&kafka.IncomingMessage{Value: []byte("{not json")}).ParseIdentityEvent()
	require.Error(t, err)
}

func TestIdentityHandler_AppliesEventsOnce(t *testing.T) {
	users := &fakeUsers{}
	dedupe := newFakeDedupe()
	h := kafka.NewIdentityHandler(users, dedupe, nopLogger)
	ctx := context.Background()

	created := event(t, map[string]any{"event_id": "e1", "type": "user.created", "user_id": 5, "username": "ann", "email": "ann@example.com"})
	require.NoError(t, h.Handle(ctx, created))
	require.NoError(t, h.Handle(ctx, created))
	require.Len(t, users.upserted, 1)
	assert.Equal(t, models.User{ID: 5, Username: "ann", Email: "ann@example.com"}, users.upserted[0])

	require.NoError(t, h.Handle(ctx, event(t, map[string]any{"event_id": "e2", "type": "user.deleted", "user_id": 5})))
	assert.Equal(t, []int64{5}, users.deleted)
}

func TestIdentityHandler_DeleteOfUnknownUserIsApplied(t *testing.T) {
	users := &fakeUsers{missing: true}
	h := kafka.NewIdentityHandler(users, nil, nopLogger)

	err := h.Handle(context.Background(), event(t, map[string]any{"event_id": "e3", "type": "user.deleted", "user_id": 9}))
	require.NoError(t, err)
}

func TestIdentityHandler_FailureIsNotMarked(t *testing.T) {
	users := &fakeUsers{err: errors.New("connection reset")}
	dedupe := newFakeDedupe()
	h := kafka.NewIdentityHandler(users, dedupe, nopLogger)
	msg := event(t, map[string]any{"event_id": "e4", "type": "user.updated", "user_id": 1})

	err := h.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.NotErrorIs(t, err, kafka.ErrSkip)
	assert.False(t, dedupe.processed["e4"])

	users.err = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, users.upserted, 1)
	assert.True(t, dedupe.processed["e4"])
}

func TestIdentityHandler_DeleteInterruptedByShutdownIsRedelivered(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	users := &fakeUsers{onDelete: cancel}
	dedupe := newFakeDedupe()
	h := kafka.NewIdentityHandler(users, dedupe, nopLogger)
	msg := event(t, map[string]any{"event_id": "e6", "type": "user.deleted", "user_id": 5})

	require.ErrorIs(t, h.Handle(ctx, msg), context.Canceled)
	assert.Empty(t, users.deleted)
	assert.False(t, dedupe.processed["e6"])

	users.onDelete = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, []int64{5}, users.deleted)
}

func TestIdentityHandler_MarkSurvivesCancellationAfterApply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	users := &fakeUsers{afterDelete: cancel}
	dedupe := newFakeDedupe()
	h := kafka.NewIdentityHandler(users, dedupe, nopLogger)
	msg := event(t, map[string]any{"event_id": "e7", "type": "user.deleted", "user_id": 8})

	require.NoError(t, h.Handle(ctx, msg))
	assert.True(t, dedupe.processed["e7"])

	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Equal(t, []int64{8}, users.deleted)
}

func TestIdentityHandler_PermanentErrorsAreSkipped(t *testing.T) {
	users := &fakeUsers{err: repositories.BadRequest("username too long")}
	h := kafka.NewIdentityHandler(users, nil, nopLogger)

	err := h.Handle(context.Background(), event(t, map[string]any{"event_id": "e5", "type": "user.updated", "user_id": 1}))
	assert.ErrorIs(t, err, kafka.ErrSkip)

	err = h.Handle(context.Background(), &kafka.IncomingMessage{Value: []byte("garbage")})
	assert.ErrorIs(t, err, kafka.ErrSkip)
}

// fakeReader serves queued messages and records commits.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafkago.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			msg := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return msg, nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafkago.Message{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestConsumer_CommitsHandledAndSkippedMessages(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{
		{Topic: "identity-events", Offset: 1, Value: []byte(`{"event_id":"a","type":"user.created","user_id":1}`)},
		{Topic: "identity-events", Offset: 2, Value: []byte(`garbage`)},
		{Topic: "identity-events", Offset: 3, Value: []byte(`{"event_id":"b","type":"user.deleted","user_id":1}`)},
	}}
	users := &fakeUsers{}
	handler := kafka.NewIdentityHandler(users, nil, nopLogger)
	consumer := kafka.NewConsumerWithReader(reader, "identity-events", nopLogger, handler.Handle)

	require.NoError(t, consumer.Start(context.Background()))
	assert.Eventually(t, func() bool { return len(reader.commits()) == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, consumer.Healthy(context.Background()))

	require.NoError(t, consumer.Stop(context.Background()))
	assert.True(t, reader.closed)
	assert.Equal(t, []int64{1, 2, 3}, reader.commits())
	assert.Len(t, users.upserted, 1)
	assert.Equal(t, []int64{1}, users.deleted)
	assert.Error(t, consumer.Healthy(context.Background()))
}

func TestConsumer_DoesNotCommitFailedMessages(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{{Topic: "identity-events", Offset: 1}}}
	var calls int
	var mu sync.Mutex
	consumer := kafka.NewConsumerWithReader(reader, "identity-events", nopLogger, func(context.Context, *kafka.IncomingMessage) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("database unavailable")
	})

	require.NoError(t, consumer.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, consumer.Stop(context.Background()))

	assert.Empty(t, reader.commits())
	mu.Lock()
	assert.GreaterOrEqual(t, calls, 1)
	mu.Unlock()
}
