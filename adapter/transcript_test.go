package adapter

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTranscript(t *testing.T, logger TranscriptLogger, ref core.ConversationReference) {
	t.Helper()

	a := NewTestAdapter(ref, false)
	a.Use(NewTranscriptLoggerMiddleware(logger))

	err := NewTestFlow(a, greeter).
		SendConversationUpdate().
		AssertReply("welcome").
		Send("hi").
		AssertReply("echo: hi").
		StartTest(context.Background())
	require.NoError(t, err)
}

func assertTranscript(t *testing.T, activities []core.Activity) {
	t.Helper()

	require.Len(t, activities, 4)
	assert.Equal(t, core.ActivityTypeConversationUpdate, activities[0].Type)
	assert.Equal(t, "welcome", activities[1].Text)
	assert.Equal(t, "bot", activities[1].From.ID)
	assert.Equal(t, "hi", activities[2].Text)
	assert.Equal(t, "user1", activities[2].From.ID)
	assert.Equal(t, "echo: hi", activities[3].Text)
}

func TestMemoryTranscriptStore(t *testing.T) {
	store := NewMemoryTranscriptStore()
	ref := CreateConversation(t.Name())
	runTranscript(t, store, ref)

	activities, err := store.GetTranscript(context.Background(), "test", ref.Conversation.ID)
	require.NoError(t, err)
	assertTranscript(t, activities)

	require.NoError(t, store.DeleteTranscript(context.Background(), "test", ref.Conversation.ID))
	activities, err = store.GetTranscript(context.Background(), "test", ref.Conversation.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestFileTranscriptLogger(t *testing.T) {
	logger, err := NewFileTranscriptLogger(t.TempDir())
	require.NoError(t, err)

	ref := CreateConversation("Transcript/Round:Trip")
	runTranscript(t, logger, ref)

	path := logger.Path("test", ref.Conversation.ID)
	assert.FileExists(t, path)
	assert.NotContains(t, path[len(logger.Dir()):], ":")

	activities, err := logger.GetTranscript(context.Background(), "test", ref.Conversation.ID)
	require.NoError(t, err)
	assertTranscript(t, activities)

	require.NoError(t, logger.DeleteTranscript(context.Background(), "test", ref.Conversation.ID))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	require.NoError(t, logger.DeleteTranscript(context.Background(), "test", ref.Conversation.ID))
}

type failingLogger struct{}

func (failingLogger) LogActivity(context.Context, core.Activity) error {
	return errors.New("disk full")
}

func TestTranscriptLoggerMiddleware_FailuresDoNotFailTurn(t *testing.T) {
	runTranscript(t, failingLogger{}, CreateConversation(t.Name()))
}

func TestReadTranscriptFile_Corrupt(t *testing.T) {
	path := t.TempDir() + "/bad.transcript"
	require.NoError(t, os.WriteFile(path, []byte("{\"type\":\"message\"}\nnot json\n"), 0o644))

	_, err := ReadTranscriptFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}
