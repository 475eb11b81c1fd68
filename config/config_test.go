package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ranklib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
training:
  algorithm: mart
  num_trees: 50
  learning_rate: 0.05
  metric: ERR@5
  feature_policy: strict
forest:
  num_bags: 10
  boosting:
    num_leaves: 32
log:
  level: debug
store:
  backend: redis
  ttl: 1h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, trees.AlgorithmMART, cfg.Training.Algorithm)
	assert.Equal(t, 50, cfg.Training.NumTrees)
	assert.Equal(t, 0.05, cfg.Training.LearningRate)
	assert.Equal(t, "ERR@5", cfg.Training.Metric)
	assert.Equal(t, "strict", cfg.Training.FeaturePolicy)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Training.NumLeaves)
	assert.Equal(t, 256, cfg.Training.NumThresholds)

	assert.Equal(t, 10, cfg.Forest.NumBags)
	assert.Equal(t, 32, cfg.Forest.Boosting.NumLeaves)
	assert.Equal(t, 1, cfg.Forest.Boosting.NumTrees)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, DefaultRedisAddr, cfg.Store.RedisAddr)
	assert.Equal(t, time.Hour, cfg.Store.TTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "training:\n  num_trees: 50\n")
	t.Setenv("RANKLIB_TRAINING_NUM_TREES", "75")
	t.Setenv("RANKLIB_TRAINING_EARLY_STOPPING_ROUNDS", "0")
	t.Setenv("RANKLIB_FOREST_NUM_BAGS", "7")
	t.Setenv("RANKLIB_FOREST_BOOSTING_FEATURE_SAMPLING_RATE", "0.5")
	t.Setenv("RANKLIB_LOG_LEVEL", "warn")
	t.Setenv("RANKLIB_UNKNOWN", "ignored")
	t.Setenv("RANKLIB_TRAINING_NUM_LEAVES", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Training.NumTrees)
	assert.Equal(t, 0, cfg.Training.EarlyStoppingRounds)
	assert.Equal(t, 7, cfg.Forest.NumBags)
	assert.Equal(t, 0.5, cfg.Forest.Boosting.FeatureSamplingRate)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Training.NumLeaves)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"RANKLIB_TRAINING_NUM_TREES", "training.num_trees", true},
		{"RANKLIB_FOREST_SUB_SAMPLING_RATE", "forest.sub_sampling_rate", true},
		{"RANKLIB_FOREST_BOOSTING_NUM_LEAVES", "forest.boosting.num_leaves", true},
		{"RANKLIB_STORE_REDIS_ADDR", "store.redis_addr", true},
		{"RANKLIB_LOG", "", false},
		{"RANKLIB_OTHER_THING", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := envKey(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{"num trees", "training:\n  num_trees: 0\n", "num_trees"},
		{"metric", "training:\n  metric: AUC\n", "metric"},
		{"bags", "forest:\n  num_bags: 0\n", "num_bags"},
		{"log level", "log:\n  level: loud\n", "log.level"},
		{"backend", "store:\n  backend: s3\n", "store.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			require.Error(t, err)
			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.param, ve.ParamName)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Training.NumTrees = 321
	cfg.Training.Algorithm = trees.AlgorithmMART
	cfg.Forest.Boosting.NumLeaves = 64
	cfg.Store.TTL = 30 * time.Minute

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))
	assert.Contains(t, buf.String(), "num_trees: 321")

	got, err := Load(writeFile(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
