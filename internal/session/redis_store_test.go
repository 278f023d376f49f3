package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"account-service/internal/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func newRecord(t *testing.T, userID uuid.UUID) *Record {
	t.Helper()
	id, err := GenerateID()
	require.NoError(t, err)
	now := time.Now().UTC()
	return &Record{
		SessionID: id,
		UserID:    userID,
		Role:      auth.RoleManager,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestRedisStorePutGet(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	rec := newRecord(t, uuid.New())
	require.NoError(t, store.Put(ctx, rec, time.Hour))

	assert.Equal(t, time.Hour, mr.TTL("session:"+rec.SessionID))
	members, err := mr.Members("session:user:" + rec.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{rec.SessionID}, members)

	got, err := store.Get(ctx, rec.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Role, got.Role)
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisStoreCustomPrefix(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "acct:sess:")

	rec := newRecord(t, uuid.New())
	require.NoError(t, store.Put(context.Background(), rec, time.Minute))
	assert.True(t, mr.Exists("acct:sess:"+rec.SessionID))
}

func TestRedisStorePutRejectsInvalid(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "")

	assert.Error(t, store.Put(context.Background(), &Record{SessionID: "x"}, time.Minute))
	assert.Error(t, store.Put(context.Background(), newRecord(t, uuid.New()), 0))
}

func TestRedisStoreGetMissing(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisStore(client, "")

	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreGetCorrupt(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")

	require.NoError(t, mr.Set("session:bad", "{not json"))

	got, err := store.Get(context.Background(), "bad")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrCorruptRecord)

	// corrupt records can still be deleted
	require.NoError(t, store.Delete(context.Background(), "bad"))
	assert.False(t, mr.Exists("session:bad"))
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	rec := newRecord(t, uuid.New())
	require.NoError(t, store.Put(ctx, rec, time.Second))

	mr.FastForward(2 * time.Second)

	got, err := store.Get(ctx, rec.SessionID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	rec := newRecord(t, uuid.New())
	require.NoError(t, store.Put(ctx, rec, time.Hour))

	require.NoError(t, store.Delete(ctx, rec.SessionID))
	require.NoError(t, store.Delete(ctx, rec.SessionID))
	require.NoError(t, store.Delete(ctx, "never-existed"))

	assert.False(t, mr.Exists("session:"+rec.SessionID))
	assert.False(t, mr.Exists("session:user:"+rec.UserID.String()))
}

func TestRedisStoreTouch(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	rec := newRecord(t, uuid.New())
	require.NoError(t, store.Put(ctx, rec, time.Minute))

	renewed := *rec
	renewed.ExpiresAt = rec.ExpiresAt.Add(time.Hour)
	ok, err := store.Touch(ctx, &renewed, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("session:"+rec.SessionID))

	got, err := store.Get(ctx, rec.SessionID)
	require.NoError(t, err)
	assert.True(t, renewed.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisStoreTouchMissingDoesNotResurrect(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")

	rec := newRecord(t, uuid.New())
	ok, err := store.Touch(context.Background(), rec, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("session:"+rec.SessionID))
}

func TestRedisStoreDeleteAllForUser(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisStore(client, "")
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()
	a1, a2, b1 := newRecord(t, alice), newRecord(t, alice), newRecord(t, bob)
	for _, rec := range []*Record{a1, a2, b1} {
		require.NoError(t, store.Put(ctx, rec, time.Hour))
	}

	n, err := store.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("session:"+a1.SessionID))
	assert.False(t, mr.Exists("session:"+a2.SessionID))
	assert.True(t, mr.Exists("session:"+b1.SessionID))

	n, err = store.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// writeAfterRead runs write once, right after the first SMEMBERS reply.
type writeAfterRead struct {
	once  sync.Once
	write func()
}

func (h *writeAfterRead) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *writeAfterRead) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() == "smembers" {
			h.once.Do(h.write)
		}
		return err
	}
}

func (h *writeAfterRead) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisStoreDeleteAllForUserConcurrentPut(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	alice := uuid.New()
	a1, late := newRecord(t, alice), newRecord(t, alice)
	require.NoError(t, NewRedisStore(other, "").Put(ctx, a1, time.Hour))

	client.AddHook(&writeAfterRead{write: func() {
		require.NoError(t, NewRedisStore(other, "").Put(ctx, late, time.Hour))
	}})
	store := NewRedisStore(client, "")

	n, err := store.DeleteAllForUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists("session:"+a1.SessionID))
	assert.False(t, mr.Exists("session:"+late.SessionID), "session created mid-revocation survived")
	assert.False(t, mr.Exists("session:user:"+alice.String()))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, "")
	mr.Close()

	ctx := context.Background()

	_, err = store.Get(ctx, "any")
	assert.ErrorIs(t, err, auth.ErrStore)

	err = store.Put(ctx, newRecord(t, uuid.New()), time.Minute)
	assert.ErrorIs(t, err, auth.ErrStore)

	err = store.Delete(ctx, "any")
	assert.ErrorIs(t, err, auth.ErrStore)

	_, err = store.DeleteAllForUser(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrStore)
}
