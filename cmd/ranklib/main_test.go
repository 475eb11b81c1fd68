package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/ranklib/core/data"
)

// writeLETOR writes queries whose label equals the first feature value.
func writeLETOR(t *testing.T, dir, name string, queries int) string {
	t.Helper()
	var sb strings.Builder
	for q := 1; q <= queries; q++ {
		for d := 0; d < 6; d++ {
			label := d % 3
			fmt.Fprintf(&sb, "%d qid:%d 1:%d 2:%.2f 3:%d\n", label, q, label, float64(q*d%7)/7, d%2)
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`training:
  num_trees: 20
  num_leaves: 4
  early_stopping_rounds: 5
  workers: 2
forest:
  num_bags: 3
  boosting:
    num_leaves: 4
    workers: 2
log:
  level: info
store:
  backend: file
  dir: %s
`, filepath.Join(dir, "models"))
	path := filepath.Join(dir, "ranklib.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestRunTrainSaveLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	trainFile := writeLETOR(t, dir, "train.txt", 8)
	valiFile := writeLETOR(t, dir, "vali.txt", 3)
	testFile := writeLETOR(t, dir, "test.txt", 3)
	plot := filepath.Join(dir, "curve.svg")
	prom := filepath.Join(dir, "metrics.prom")
	ranked := filepath.Join(dir, "ranked.txt")

	var stderr bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfg,
		"-train", trainFile,
		"-validate", valiFile,
		"-test", testFile,
		"-save", "lm",
		"-plot", plot,
		"-prom", prom,
		"-rank", ranked,
		"-importance",
	}, &stderr)
	require.NoError(t, err, stderr.String())

	assert.FileExists(t, filepath.Join(dir, "models", "lm.model"))
	assert.FileExists(t, plot)
	promText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(promText), "ranklib_training_runs_total")
	assert.Contains(t, stderr.String(), "test evaluation")
	assert.Contains(t, stderr.String(), "feature importance")

	lists, err := data.ReadLETORFile(ranked)
	require.NoError(t, err)
	assert.Len(t, lists, 3)

	stderr.Reset()
	err = run(context.Background(), []string{
		"-config", cfg,
		"-load", "lm",
		"-test", testFile,
		"-metric", "ERR@5",
	}, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stderr.String(), "model loaded")
	assert.Contains(t, stderr.String(), "ERR@5")
}

func TestRunForest(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	trainFile := writeLETOR(t, dir, "train.txt", 6)

	var stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfg, "-forest", "-train", trainFile, "-save", "rf"}, &stderr)
	require.NoError(t, err, stderr.String())

	model, err := os.ReadFile(filepath.Join(dir, "models", "rf.model"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(model), "## Random Forests\n"))
	assert.Equal(t, 3, strings.Count(string(model), "<ensemble>"))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"-config", cfg}},
		{"unknown flag", []string{"-bogus"}},
		{"bad metric", []string{"-config", cfg, "-train", writeLETOR(t, dir, "t.txt", 2), "-metric", "AUC"}},
		{"missing model", []string{"-config", cfg, "-load", "nothing"}},
		{"missing train file", []string{"-config", cfg, "-train", filepath.Join(dir, "absent.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &stderr))
		})
	}
}

func TestRunCanceled(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stderr bytes.Buffer
	err := run(ctx, []string{"-config", cfg, "-train", writeLETOR(t, dir, "train.txt", 4)}, &stderr)
	assert.ErrorIs(t, err, context.Canceled)
}
