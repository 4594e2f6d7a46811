package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tingyu91/snsjf/internal/redisclient"
)

const keyPrefix = "sess:"

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{rdb: client.Raw()}
}

func (s *RedisStore) Save(ctx context.Context, sess Session, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, keyPrefix+sess.ID, raw, ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (Session, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keyPrefix+id).Err()
}
