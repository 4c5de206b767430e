package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in Redis with a TTL matching their expiry.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis server at url
// (redis://[:password@]host:port/db).
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+s.ID, data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Expired(time.Now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}
