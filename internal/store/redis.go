package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/serde"
)

const defaultRedisKey = "notebook:experiments"

// RedisStore appends experiment records to a Redis list. Each record is the
// same JSON line LogStore writes, pushed with a single RPUSH, so writers on
// different hosts share one ordered log.
type RedisStore struct {
	client *redis.Client
	codec  *serde.Codec
	key    string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKey sets the list key records are pushed to.
// Default is "notebook:experiments".
func WithKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisStore creates a Redis-backed store over an existing client.
// A nil codec means serde.Default().
func NewRedisStore(client *redis.Client, codec *serde.Codec, opts ...RedisOption) *RedisStore {
	if codec == nil {
		codec = serde.Default()
	}
	s := &RedisStore{
		client: client,
		codec:  codec,
		key:    defaultRedisKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis connects to the server named by a redis:// or rediss:// URL and
// verifies it answers. The optional "key" query parameter selects the list.
func OpenRedis(ctx context.Context, uri string, codec *serde.Codec) (*RedisStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "open redis", err)
	}
	q := u.Query()
	key := q.Get("key")
	q.Del("key")
	u.RawQuery = q.Encode()

	opts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "open redis", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errs.Wrap(errs.Storage, "open redis: ping", err)
	}
	return NewRedisStore(client, codec, WithKey(key)), nil
}

// Key returns the list key.
func (s *RedisStore) Key() string {
	return s.key
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// RecordExperiment pushes one encoded record onto the list.
func (s *RedisStore) RecordExperiment(ctx context.Context, exp record.Experiment) error {
	line, err := encodeLine(s.codec, exp)
	if err != nil {
		return fmt.Errorf("record experiment: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, line).Err(); err != nil {
		return errs.Wrap(errs.Storage, "record experiment: redis rpush", err)
	}
	return nil
}

// ListAllExperiments returns every record on the list in push order.
func (s *RedisStore) ListAllExperiments(ctx context.Context) ([]record.Experiment, error) {
	lines, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "list experiments: redis lrange", err)
	}
	experiments := make([]record.Experiment, 0, len(lines))
	for i, line := range lines {
		exp, err := decodeLine(s.codec, []byte(line))
		if err != nil {
			return nil, errs.Wrap(errs.Storage, fmt.Sprintf("list experiments: entry %d", i), err)
		}
		experiments = append(experiments, exp)
	}
	return experiments, nil
}
