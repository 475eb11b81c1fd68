package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/YuminosukeSato/ranklib/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", IterationKey, 3)
	testLogger.Error("error message", errors.New("boom"), TreesKey, 7)

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON numbers decode as float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrorKey, "boom") {
		t.Error("leading error should be logged under the error key")
	}
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	child := testLogger.With(ModelNameKey, "LambdaMART", RunIDKey, "run-1")
	child.Info("Boosting finished")
	testLogger.Debug("filtered out")

	entries, err := testLogger.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0][ModelNameKey] != "LambdaMART" || entries[0][RunIDKey] != "run-1" {
		t.Errorf("missing context fields: %v", entries[0])
	}
	if testLogger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if got := testLogger.EntriesWithMessage("Boosting finished"); len(got) != 1 || got[0]["level"] != "info" {
		t.Errorf("EntriesWithMessage = %v", got)
	}
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo).With(ModelNameKey, "MART")

	logger.Debug("hidden")
	logger.Info("tree fitted", IterationKey, 2, LeavesKey, 10)
	logger.Error("save failed", errors.WithStack(errors.New("disk full")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["message"] != "tree fitted" || first[ModelNameKey] != "MART" || first[IterationKey] != 2.0 {
		t.Errorf("unexpected first entry: %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second[ErrorKey] != "disk full" {
		t.Errorf("error field = %v", second[ErrorKey])
	}
	if st, _ := second[StacktraceKey].(string); st == "" {
		t.Error("expected stack trace for error logged with stack")
	}
}

func TestProviderSwap(t *testing.T) {
	testProvider, buffer := NewTestLoggerProvider(LevelDebug)
	prev := SetProvider(testProvider)
	defer SetProvider(prev)

	GetLoggerWithName("trees.trainer").Info("hello")
	if !strings.Contains(buffer.String(), "trees.trainer") {
		t.Errorf("component name missing: %s", buffer.String())
	}

	errors.Warn(errors.NewUndefinedMetricWarning("NDCG@10", "no relevant documents", 0))
	if !strings.Contains(buffer.String(), "NDCG@10") {
		t.Errorf("warning should be routed to the logger: %s", buffer.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, ok)
		}
	}
}
