package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"account-service/internal/auth"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

const DefaultKeyPrefix = "session:"

const maxWatchRetries = 5

// ErrCorruptRecord is returned by Get when the stored value cannot be decoded.
var ErrCorruptRecord = errors.New("session: corrupt record")

// RedisStore keeps one JSON value per session under <prefix><session_id>
// with a TTL equal to the session lifetime, plus a set per user at
// <prefix>user:<user_id> listing that user's session ids.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) userKey(userID uuid.UUID) string {
	return r.prefix + "user:" + userID.String()
}

func (r *RedisStore) Put(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.SessionID == "" || rec.UserID == uuid.Nil {
		return oops.Code("SESSION_INVALID_RECORD").Errorf("session: missing session_id or user_id")
	}
	if ttl <= 0 {
		return oops.Code("SESSION_INVALID_RECORD").With("ttl", ttl).Errorf("session: ttl must be positive")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("SESSION_INVALID_RECORD").Wrapf(err, "session: failed to marshal")
	}

	userKey := r.userKey(rec.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(rec.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, rec.SessionID)
		// every session shares the configured lifetime, so the newest
		// write always carries the furthest expiry
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return auth.E(auth.ErrStore, "session put", err)
	}

	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, auth.E(auth.ErrStore, "session get", err)
	}

	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil || rec.UserID == uuid.Nil {
		return nil, oops.Code("SESSION_CORRUPT").With("operation", "session get").Wrap(ErrCorruptRecord)
	}

	return &rec, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	rec, err := r.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrCorruptRecord) {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(sessionID))
		if rec != nil {
			pipe.SRem(ctx, r.userKey(rec.UserID), sessionID)
		}
		return nil
	})
	if err != nil {
		return auth.E(auth.ErrStore, "session delete", err)
	}

	return nil
}

func (r *RedisStore) Touch(ctx context.Context, rec *Record, ttl time.Duration) (bool, error) {
	if rec == nil || rec.SessionID == "" || ttl <= 0 {
		return false, oops.Code("SESSION_INVALID_RECORD").Errorf("session: invalid touch")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, oops.Code("SESSION_INVALID_RECORD").Wrapf(err, "session: failed to marshal")
	}

	var set *redis.BoolCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// XX: never resurrect a session deleted since it was read
		set = pipe.SetXX(ctx, r.key(rec.SessionID), data, ttl)
		pipe.Expire(ctx, r.userKey(rec.UserID), ttl)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, auth.E(auth.ErrStore, "session touch", err)
	}

	return set.Val(), nil
}

func (r *RedisStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	userKey := r.userKey(userID)

	// WATCH the index so a session added between the read and the
	// delete aborts the transaction instead of surviving it.
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		n, err := r.deleteAllForUser(ctx, userKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, auth.E(auth.ErrStore, "session delete all", err)
		}
		return n, nil
	}
	return 0, auth.E(auth.ErrStore, "session delete all", redis.TxFailedErr)
}

func (r *RedisStore) deleteAllForUser(ctx context.Context, userKey string) (int, error) {
	var deleted *redis.IntCmd
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		ids, err := tx.SMembers(ctx, userKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, r.key(id))
		}

		deleted = nil
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(keys) > 0 {
				deleted = pipe.Del(ctx, keys...)
			}
			pipe.Del(ctx, userKey)
			return nil
		})
		return err
	}, userKey)
	if err != nil {
		return 0, err
	}
	if deleted == nil {
		return 0, nil
	}
	return int(deleted.Val()), nil
}
