package modelstore

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ranklib/config"
	"github.com/YuminosukeSato/ranklib/core/data"
	"github.com/YuminosukeSato/ranklib/pkg/errors"
	"github.com/YuminosukeSato/ranklib/rank/trees"
)

const stumpModel = `## LambdaMART
## No. of trees = 1
## Learning rate = 0.1

<ensemble>
	<tree id="1" weight="0.1">
		<split>
			<feature> 1 </feature>
			<threshold> 0.5 </threshold>
			<split pos="left">
				<output> -1.0 </output>
			</split>
			<split pos="right">
				<output> 2.0 </output>
			</split>
		</split>
	</tree>
</ensemble>
`

const stumpForest = `## Random Forests
## No. of bags = 2

<ensemble>
	<tree id="1" weight="1.0">
		<split>
			<output> 1.0 </output>
		</split>
	</tree>
</ensemble>
<ensemble>
	<tree id="1" weight="1.0">
		<split>
			<output> 3.0 </output>
		</split>
	</tree>
</ensemble>
`

// exerciseStore runs the behaviour every Store must share.
func exerciseStore(t *testing.T, s Store, prefix string) {
	ctx := context.Background()
	a, b := prefix+"alpha", prefix+"beta"

	_, err := s.Load(ctx, a)
	assert.True(t, errors.Is(err, ErrNotFound), "load before save: %v", err)

	require.NoError(t, s.Save(ctx, a, []byte(stumpModel)))
	require.NoError(t, s.Save(ctx, b, []byte("v1")))
	require.NoError(t, s.Save(ctx, b, []byte("v2")))

	got, err := s.Load(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, stumpModel, string(got))

	got, err = s.Load(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got), "save overwrites")

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Subset(t, names, []string{a, b})

	require.NoError(t, s.Delete(ctx, a))
	require.NoError(t, s.Delete(ctx, a), "deleting a missing model is not an error")
	_, err = s.Load(ctx, a)
	assert.True(t, errors.Is(err, ErrNotFound))

	for _, bad := range []string{"", "..", "a/b", `a\b`} {
		err := s.Save(ctx, bad, []byte("x"))
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), "name %q: %v", bad, err)
	}
	require.NoError(t, s.Delete(ctx, b))
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "models")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s, "")

	require.NoError(t, s.Save(context.Background(), "kept", []byte(stumpModel)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files remain")
	assert.Equal(t, "kept"+ModelExt, entries[0].Name())
}

func TestFileStoreCanceled(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, "m", []byte("x")), context.Canceled)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	return client
}

func TestRedisStore(t *testing.T) {
	client := redisClient(t)
	prefix := "ranklib-test:" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":"
	s := NewRedisStore(client, prefix, time.Minute)
	defer s.Close()

	exerciseStore(t, s, "")

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "ttl", []byte("x")))
	ttl, err := client.TTL(ctx, prefix+"ttl").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	client.Del(ctx, prefix+"ttl")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Backend: config.StoreFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	_, err = Open(ctx, config.StoreConfig{Backend: "s3"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Backend: config.StoreRedis, RedisAddr: "localhost:1"})
	assert.Error(t, err)
}

func TestSaveLoadEnsemble(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	h, ens, err := trees.ParseModelString(stumpModel)
	require.NoError(t, err)
	require.NoError(t, SaveEnsemble(ctx, s, "stump", h, ens))

	raw, err := s.Load(ctx, "stump")
	require.NoError(t, err)
	assert.Equal(t, stumpModel, string(raw), "serialization is stable")

	_, loaded, err := LoadEnsemble(ctx, s, "stump")
	require.NoError(t, err)
	p := data.NewDataPoint(1, "q", []float64{0.9})
	assert.InDelta(t, 0.2, loaded.Eval(p), 1e-12)
}

func TestLoadRanker(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "gbm", []byte(stumpModel)))
	require.NoError(t, s.Save(ctx, "rf", []byte(stumpForest)))

	p := data.NewDataPoint(0, "q", []float64{0.1})

	h, r, err := LoadRanker(ctx, s, "gbm")
	require.NoError(t, err)
	assert.Equal(t, "LambdaMART", h.Ranker)
	got, err := r.Score(p)
	require.NoError(t, err)
	assert.InDelta(t, -0.1, got, 1e-12)

	h, r, err = LoadRanker(ctx, s, "rf")
	require.NoError(t, err)
	assert.Equal(t, trees.RandomForestsName, h.Ranker)
	require.IsType(t, &trees.Forest{}, r)
	got, err = r.Score(p)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)

	f := r.(*trees.Forest)
	require.NoError(t, SaveForest(ctx, s, "rf2", h, f))
	raw, err := s.Load(ctx, "rf2")
	require.NoError(t, err)
	assert.Equal(t, stumpForest, string(raw))

	_, _, err = LoadRanker(ctx, s, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSaveEnsembleRejectsUntrained(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	err = SaveEnsemble(ctx, s, "empty", trees.Header{Ranker: "MART"}, trees.NewEnsemble())
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf), "got %v", err)

	_, err = s.Load(ctx, "empty")
	assert.True(t, errors.Is(err, ErrNotFound), "nothing should be stored")
}
