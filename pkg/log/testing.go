package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures log output in memory. It encodes through ZerologLogger,
// so assertions see the same JSON layout a production run writes.
type TestLogger struct {
	*ZerologLogger
	out *syncBuffer
}

// syncBuffer serializes writes from concurrent training workers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewTestLogger returns a capturing logger and the buffer it writes to.
// Loggers derived with With share the buffer.
func NewTestLogger(level Level) (*TestLogger, *bytes.Buffer) {
	out := &syncBuffer{}
	return &TestLogger{ZerologLogger: NewZerologLogger(out, level), out: out}, &out.buf
}

// Entries decodes every captured line.
func (t *TestLogger) Entries() ([]map[string]any, error) {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(t.out.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// EntriesWithMessage returns the captured entries whose message equals msg.
func (t *TestLogger) EntriesWithMessage(msg string) []map[string]any {
	entries, err := t.Entries()
	if err != nil {
		return nil
	}
	var out []map[string]any
	for _, e := range entries {
		if e[zerolog.MessageFieldName] == msg {
			out = append(out, e)
		}
	}
	return out
}

// ContainsMessage reports whether any captured line contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	return strings.Contains(t.out.String(), message)
}

// ContainsField reports whether some entry has key set to value. JSON numbers
// decode as float64.
func (t *TestLogger) ContainsField(key string, value any) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if v, ok := e[key]; ok && v == value {
			return true
		}
	}
	return false
}

// NewTestLoggerProvider returns a provider whose loggers all write to the
// returned buffer.
func NewTestLoggerProvider(level Level) (LoggerProvider, *bytes.Buffer) {
	out := &syncBuffer{}
	return NewZerologProvider(out, level), &out.buf
}
