// Package config loads ranklib settings from a YAML file and RANKLIB_*
// environment variables.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/pkg/log"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

// EnvPrefix is the prefix of environment overrides. RANKLIB_TRAINING_NUM_TREES
// sets training.num_trees, RANKLIB_FOREST_BOOSTING_NUM_LEAVES sets
// forest.boosting.num_leaves.
const EnvPrefix = "RANKLIB_"

// Store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config is the complete ranklib configuration.
type Config struct {
	Training trees.TrainingParams `koanf:"training" yaml:"training"`
	Forest   trees.ForestParams   `koanf:"forest" yaml:"forest"`
	Log      LogConfig            `koanf:"log" yaml:"log"`
	Store    StoreConfig          `koanf:"store" yaml:"store"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

// StoreConfig selects where serialized models are kept.
type StoreConfig struct {
	Backend   string        `koanf:"backend" yaml:"backend"`
	Dir       string        `koanf:"dir" yaml:"dir"`
	RedisAddr string        `koanf:"redis_addr" yaml:"redis_addr"`
	RedisDB   int           `koanf:"redis_db" yaml:"redis_db"`
	KeyPrefix string        `koanf:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `koanf:"ttl" yaml:"ttl"` // 0 keeps models forever
}

// Defaults
const (
	DefaultLogLevel  = "info"
	DefaultStoreDir  = "models"
	DefaultRedisAddr = "localhost:6379"
	DefaultKeyPrefix = "ranklib:model:"
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Training: trees.DefaultTrainingParams(),
		Forest:   trees.DefaultForestParams(),
		Log:      LogConfig{Level: DefaultLogLevel},
		Store: StoreConfig{
			Backend:   StoreFile,
			Dir:       DefaultStoreDir,
			RedisAddr: DefaultRedisAddr,
			KeyPrefix: DefaultKeyPrefix,
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty) and RANKLIB_* environment variables, in that order, and
// validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}
	if err := applyEnv(k, os.Environ()); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(k *koanf.Koanf, environ []string) error {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) || value == "" {
			continue
		}
		key, ok := envKey(name)
		if !ok {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return errors.Wrapf(err, "apply %s", name)
		}
	}
	return nil
}

// envKey maps RANKLIB_SECTION_FIELD to section.field.
func envKey(name string) (string, bool) {
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" {
		return "", false
	}
	switch section {
	case "training", "log", "store":
		return section + "." + field, true
	case "forest":
		if f, ok := strings.CutPrefix(field, "boosting_"); ok {
			return "forest.boosting." + f, true
		}
		return "forest." + field, true
	}
	return "", false
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Training.Validate(); err != nil {
		return errors.Wrap(err, "training")
	}
	if err := c.Forest.Validate(); err != nil {
		return errors.Wrap(err, "forest")
	}
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	switch c.Store.Backend {
	case StoreFile:
		if c.Store.Dir == "" {
			return errors.NewValidationError("store.dir", "is required for the file backend", c.Store.Dir)
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.NewValidationError("store.redis_addr", "is required for the redis backend", c.Store.RedisAddr)
		}
	default:
		return errors.NewValidationError("store.backend", "must be 'file' or 'redis'", c.Store.Backend)
	}
	if c.Store.TTL < 0 {
		return errors.NewValidationError("store.ttl", "must not be negative", c.Store.TTL)
	}
	return nil
}

// Write dumps cfg as YAML. The output can be read back with Load.
func Write(w io.Writer, cfg *Config) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return enc.Close()
}
