// Package modelstore persists serialized ranking models by name.
package modelstore

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/YuminosukeSato/ranklib/config"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// ErrNotFound is returned by Load when no model is stored under the name.
var ErrNotFound = errors.New("model not found")

// Store keeps model text under a name.
type Store interface {
	Name() string
	Save(ctx context.Context, name string, model []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open creates the store selected by c.
func Open(ctx context.Context, c config.StoreConfig) (Store, error) {
	switch c.Backend {
	case config.StoreFile, "":
		return NewFileStore(c.Dir)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, DB: c.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrapf(err, "connect to redis at %s", c.RedisAddr)
		}
		return NewRedisStore(client, c.KeyPrefix, c.TTL), nil
	default:
		return nil, errors.NewValidationError("store.backend", "must be 'file' or 'redis'", c.Backend)
	}
}

// checkName rejects names that cannot be used as a single path element.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.NewValidationError("name", "must be a non-empty name without path separators", name)
	}
	return nil
}
