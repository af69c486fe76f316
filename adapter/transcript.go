package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/dialogmesh/core"
)

// TranscriptLogger persists the activities of a conversation.
type TranscriptLogger interface {
	LogActivity(ctx context.Context, a core.Activity) error
}

// TranscriptStore is a TranscriptLogger that can read transcripts back.
type TranscriptStore interface {
	TranscriptLogger
	GetTranscript(ctx context.Context, channelID, conversationID string) ([]core.Activity, error)
	DeleteTranscript(ctx context.Context, channelID, conversationID string) error
}

// TranscriptLoggerMiddleware records the inbound activity and every outbound
// one. Logging failures are reported through the turn logger and never fail
// the turn.
type TranscriptLoggerMiddleware struct {
	logger TranscriptLogger
}

var _ core.Middleware = (*TranscriptLoggerMiddleware)(nil)

// NewTranscriptLoggerMiddleware wraps logger.
func NewTranscriptLoggerMiddleware(logger TranscriptLogger) *TranscriptLoggerMiddleware {
	return &TranscriptLoggerMiddleware{logger: logger}
}

// OnTurn implements core.Middleware.
func (m *TranscriptLoggerMiddleware) OnTurn(tc *core.TurnContext, next core.Handler) error {
	m.log(tc, tc.Activity)

	tc.OnSendActivities(func(tc *core.TurnContext, activities []core.Activity) ([]core.Activity, error) {
		for _, a := range activities {
			m.log(tc, a)
		}
		return activities, nil
	})

	return next(tc)
}

func (m *TranscriptLoggerMiddleware) log(tc *core.TurnContext, a core.Activity) {
	if err := m.logger.LogActivity(tc.Context, a); err != nil {
		tc.LogWarn("transcript logging failed", "activity_id", a.ID, "error", err)
	}
}

// MemoryTranscriptStore keeps transcripts in memory.
type MemoryTranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[string][]core.Activity
}

var _ TranscriptStore = (*MemoryTranscriptStore)(nil)

// NewMemoryTranscriptStore creates an empty store.
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{transcripts: map[string][]core.Activity{}}
}

func transcriptKey(channelID, conversationID string) string {
	return channelID + "/" + conversationID
}

// LogActivity appends a to its conversation transcript.
func (s *MemoryTranscriptStore) LogActivity(_ context.Context, a core.Activity) error {
	if a.ChannelID == "" || a.Conversation.ID == "" {
		return fmt.Errorf("transcript: activity %q has no conversation", a.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := transcriptKey(a.ChannelID, a.Conversation.ID)
	s.transcripts[key] = append(s.transcripts[key], a)
	return nil
}

// GetTranscript returns a copy of the conversation transcript.
func (s *MemoryTranscriptStore) GetTranscript(_ context.Context, channelID, conversationID string) ([]core.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Activity(nil), s.transcripts[transcriptKey(channelID, conversationID)]...), nil
}

// DeleteTranscript removes the conversation transcript.
func (s *MemoryTranscriptStore) DeleteTranscript(_ context.Context, channelID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transcripts, transcriptKey(channelID, conversationID))
	return nil
}

// FileTranscriptLogger appends activities as JSON lines to
// <dir>/<channel>/<conversation>.transcript.
type FileTranscriptLogger struct {
	dir string
	mu  sync.Mutex
}

var _ TranscriptStore = (*FileTranscriptLogger)(nil)

// DefaultTranscriptDir is used when NewFileTranscriptLogger gets an empty dir.
const DefaultTranscriptDir = "transcripts"

// NewFileTranscriptLogger creates a logger writing below dir.
func NewFileTranscriptLogger(dir string) (*FileTranscriptLogger, error) {
	if dir == "" {
		dir = DefaultTranscriptDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("transcript dir: %w", err)
	}
	return &FileTranscriptLogger{dir: abs}, nil
}

// Dir returns the root folder.
func (l *FileTranscriptLogger) Dir() string { return l.dir }

// Path returns the transcript file of a conversation.
func (l *FileTranscriptLogger) Path(channelID, conversationID string) string {
	return filepath.Join(l.dir, sanitize(channelID), sanitize(conversationID)+".transcript")
}

// LogActivity appends a as one JSON line.
func (l *FileTranscriptLogger) LogActivity(ctx context.Context, a core.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ChannelID == "" || a.Conversation.ID == "" {
		return fmt.Errorf("transcript: activity %q has no conversation", a.ID)
	}

	line, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("transcript: encode: %w", err)
	}

	path := l.Path(a.ChannelID, a.Conversation.ID)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("transcript: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("transcript: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("transcript: %w", err)
	}

	return f.Close()
}

// GetTranscript reads a conversation transcript. A missing file yields an
// empty transcript.
func (l *FileTranscriptLogger) GetTranscript(ctx context.Context, channelID, conversationID string) ([]core.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadTranscriptFile(l.Path(channelID, conversationID))
}

// DeleteTranscript removes a conversation transcript.
func (l *FileTranscriptLogger) DeleteTranscript(_ context.Context, channelID, conversationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := os.Remove(l.Path(channelID, conversationID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("transcript: %w", err)
	}
	return nil
}

// ReadTranscriptFile decodes a JSON lines transcript file.
func ReadTranscriptFile(path string) ([]core.Activity, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	defer f.Close()

	var out []core.Activity

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var a core.Activity
		if err := json.Unmarshal([]byte(text), &a); err != nil {
			return nil, fmt.Errorf("transcript %s:%d: %w", path, line, err)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}

	return out, nil
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", "..", "_")

func sanitize(s string) string { return unsafeChars.Replace(s) }
