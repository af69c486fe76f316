package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	entries []logEntry
}

func (r *recordingLogger) add(level, msg string, args []any) {
	r.entries = append(r.entries, logEntry{level: level, msg: msg, args: args})
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.add("debug", msg, args) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.add("info", msg, args) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.add("warn", msg, args) }
func (r *recordingLogger) Error(msg string, args ...any) { r.add("error", msg, args) }

func TestTurnContext_LogsCarryConversation(t *testing.T) {
	rec := &recordingLogger{}
	in := NewMessageActivity("hi").ApplyConversationReference(testReference(), true)
	in.ID = "a1"

	tc := NewTurnContext(context.Background(), nil, in, rec)
	tc.LogInfo("hello", "k", "v")
	tc.LogWarn("careful")

	assert.Equal(t, []logEntry{
		{level: "info", msg: "hello", args: []any{"channel_id", "test", "conversation_id", "convo1", "activity_id", "a1", "k", "v"}},
		{level: "warn", msg: "careful", args: []any{"channel_id", "test", "conversation_id", "convo1", "activity_id", "a1"}},
	}, rec.entries)
	assert.Same(t, rec, tc.Logger())
}

func TestTurnContext_NilLogger(t *testing.T) {
	tc := NewTurnContext(context.Background(), nil, Activity{}, nil)

	assert.NotPanics(t, func() {
		tc.LogDebug("ignored")
		tc.LogError("ignored", "k", 1)
	})
}
