package adapter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/dialogmesh/core"
)

// CreateConversation returns a reference for a test conversation named
// name on the "test" channel between "user1" and "bot".
func CreateConversation(name string) core.ConversationReference {
	return core.ConversationReference{
		ChannelID:    "test",
		ServiceURL:   "https://test.com",
		User:         core.ChannelAccount{ID: "user1", Name: "User1", Role: "user"},
		Bot:          core.ChannelAccount{ID: "bot", Name: "Bot", Role: "bot"},
		Conversation: core.ConversationAccount{ID: name, Name: name},
	}
}

// TestAdapter is an in-process channel. Inbound activities run through the
// pipeline synchronously; replies are queued for inspection.
type TestAdapter struct {
	*Adapter

	ref       core.ConversationReference
	sendTrace bool

	mu      sync.Mutex
	replies []core.Activity
	nextID  int
}

var _ core.Sender = (*TestAdapter)(nil)

// NewTestAdapter creates a TestAdapter for ref. Trace activities are dropped
// unless sendTrace is set.
func NewTestAdapter(ref core.ConversationReference, sendTrace bool, optFns ...func(o *Options)) *TestAdapter {
	return &TestAdapter{Adapter: New(optFns...), ref: ref, sendTrace: sendTrace}
}

// Conversation returns the conversation reference.
func (t *TestAdapter) Conversation() core.ConversationReference { return t.ref }

// SendActivities implements core.Sender by queueing replies.
func (t *TestAdapter) SendActivities(ctx context.Context, activities []core.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, a := range activities {
		if a.Type == core.ActivityTypeTrace && !t.sendTrace {
			continue
		}
		if a.ID == "" {
			a.ID = t.newIDLocked()
		}
		t.replies = append(t.replies, a)
	}

	return nil
}

// ProcessActivity addresses a as coming from the test user and runs it
// through the pipeline and handler.
func (t *TestAdapter) ProcessActivity(ctx context.Context, a core.Activity, handler core.Handler) error {
	a = a.ApplyConversationReference(t.ref, true)

	t.mu.Lock()
	if a.ID == "" {
		a.ID = t.newIDLocked()
	}
	t.mu.Unlock()

	if a.Type == "" {
		a.Type = core.ActivityTypeMessage
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	tc := core.NewTurnContext(ctx, t, a, t.Logger())

	return t.RunPipeline(tc, handler)
}

// SendText processes a user message.
func (t *TestAdapter) SendText(ctx context.Context, text string, handler core.Handler) error {
	return t.ProcessActivity(ctx, t.MakeActivity(text), handler)
}

// SendConversationUpdate processes a conversation update adding the user.
func (t *TestAdapter) SendConversationUpdate(ctx context.Context, handler core.Handler) error {
	return t.ProcessActivity(ctx, core.Activity{
		Type:         core.ActivityTypeConversationUpdate,
		MembersAdded: []core.ChannelAccount{t.ref.User},
	}, handler)
}

// MakeActivity builds a user message for the test conversation.
func (t *TestAdapter) MakeActivity(text string) core.Activity {
	return core.NewMessageActivity(text).ApplyConversationReference(t.ref, true)
}

// GetNextReply dequeues the oldest reply.
func (t *TestAdapter) GetNextReply() (core.Activity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.replies) == 0 {
		return core.Activity{}, false
	}
	a := t.replies[0]
	t.replies = t.replies[1:]
	return a, true
}

// ActiveQueue returns the pending replies without dequeuing them.
func (t *TestAdapter) ActiveQueue() []core.Activity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.Activity(nil), t.replies...)
}

func (t *TestAdapter) newIDLocked() string {
	t.nextID++
	return strconv.Itoa(t.nextID)
}
