package modelstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// RedisStore keeps each model as a string value under prefix+name.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl stores models without expiry.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(name string) string { return r.prefix + name }

func (r *RedisStore) Save(ctx context.Context, name string, model []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(name), model, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "store model %s", name)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	val, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read model %s", name)
	}
	return val, nil
}

func (r *RedisStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(name)).Err()
}

// List scans the key space for the store prefix.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var names []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "scan models")
	}
	sort.Strings(names)
	return names, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
