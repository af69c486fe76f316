package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/dialogmesh/logging"
)

// Sender delivers outbound activities to a channel.
type Sender interface {
	SendActivities(ctx context.Context, activities []Activity) error
}

// SendActivitiesHook observes (or rewrites) outbound activities before they
// reach the Sender. Hooks run in registration order.
type SendActivitiesHook func(tc *TurnContext, activities []Activity) ([]Activity, error)

// TurnContext carries execution state & helpers for a single turn.
// It aggregates:
//   - The ambient cancellation Context
//   - The inbound Activity that started the turn
//   - A per-turn service / cache bag (TurnState) used by middleware and state
//     accessors
//   - Reply delivery through the adapter's Sender plus send hooks
//
// A TurnContext is discarded once the turn completes.
type TurnContext struct {
	Context  context.Context
	Activity Activity

	sender    Sender
	turnState map[string]any
	hooks     []SendActivitiesHook
	responded bool
	mu        sync.Mutex

	*loggerAdapter
}

// NewTurnContext constructs a TurnContext for an inbound activity.
func NewTurnContext(ctx context.Context, sender Sender, activity Activity, logger logging.Logger) *TurnContext {
	return &TurnContext{
		Context:       ctx,
		Activity:      activity,
		sender:        sender,
		turnState:     map[string]any{},
		loggerAdapter: newLoggerAdapter(logger, activity),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (tc *TurnContext) Done() <-chan struct{} { return tc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (tc *TurnContext) Err() error { return tc.Context.Err() }

// Set stores a per-turn value under key.
func (tc *TurnContext) Set(key string, v any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.turnState[key] = v
}

// Get returns a per-turn value and whether it was present.
func (tc *TurnContext) Get(key string) (any, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	v, ok := tc.turnState[key]
	return v, ok
}

// Responded reports whether at least one non-trace activity was sent.
func (tc *TurnContext) Responded() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.responded
}

// OnSendActivities registers a hook for outbound activities.
func (tc *TurnContext) OnSendActivities(h SendActivitiesHook) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.hooks = append(tc.hooks, h)
}

// SendText sends a plain text message reply.
func (tc *TurnContext) SendText(text string) error {
	return tc.SendActivity(NewMessageActivity(text))
}

// SendActivity sends a single activity addressed to the current conversation.
func (tc *TurnContext) SendActivity(a Activity) error {
	return tc.SendActivities(a)
}

// SendActivities stamps the conversation reference of the inbound activity on
// every outbound one, runs the send hooks, then delivers through the Sender.
func (tc *TurnContext) SendActivities(activities ...Activity) error {
	if len(activities) == 0 {
		return nil
	}

	ref := tc.Activity.ConversationReference()
	out := make([]Activity, 0, len(activities))

	for _, a := range activities {
		a = a.ApplyConversationReference(ref, false)
		if a.Type == "" {
			a.Type = ActivityTypeMessage
		}
		out = append(out, a)
	}

	tc.mu.Lock()
	hooks := append([]SendActivitiesHook(nil), tc.hooks...)
	tc.mu.Unlock()

	var err error
	for _, h := range hooks {
		if out, err = h(tc, out); err != nil {
			return fmt.Errorf("send hook: %w", err)
		}
	}

	if tc.sender == nil {
		return fmt.Errorf("sender not configured")
	}

	if err := tc.sender.SendActivities(tc.Context, out); err != nil {
		return err
	}

	for _, a := range out {
		if a.Type != ActivityTypeTrace {
			tc.mu.Lock()
			tc.responded = true
			tc.mu.Unlock()
			break
		}
	}

	return nil
}

// Handler processes a turn.
type Handler func(tc *TurnContext) error

// Middleware participates in the turn pipeline. Implementations call next to
// continue processing; not calling it short-circuits the turn.
type Middleware interface {
	OnTurn(tc *TurnContext, next Handler) error
}

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc func(tc *TurnContext, next Handler) error

// OnTurn implements Middleware.
func (f MiddlewareFunc) OnTurn(tc *TurnContext, next Handler) error { return f(tc, next) }
