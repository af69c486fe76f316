package adapter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/dialogmesh/core"
)

// ErrAssertion is wrapped by every failed TestFlow expectation.
var ErrAssertion = errors.New("assertion failed")

type flowStep struct {
	name string
	run  func(ctx context.Context) error
}

// TestFlow scripts a conversation against a TestAdapter. Each method returns
// a new flow with one more step; StartTest runs the steps strictly in order
// and stops at the first failure.
type TestFlow struct {
	adapter *TestAdapter
	handler core.Handler
	steps   []flowStep
}

// NewTestFlow creates an empty flow.
func NewTestFlow(adapter *TestAdapter, handler core.Handler) *TestFlow {
	return &TestFlow{adapter: adapter, handler: handler}
}

func (f *TestFlow) then(name string, run func(ctx context.Context) error) *TestFlow {
	steps := make([]flowStep, len(f.steps), len(f.steps)+1)
	copy(steps, f.steps)
	return &TestFlow{adapter: f.adapter, handler: f.handler, steps: append(steps, flowStep{name: name, run: run})}
}

// Send processes a user message.
func (f *TestFlow) Send(text string) *TestFlow {
	return f.then(fmt.Sprintf("send %q", text), func(ctx context.Context) error {
		return f.adapter.SendText(ctx, text, f.handler)
	})
}

// SendConversationUpdate processes a conversation update adding the user.
func (f *TestFlow) SendConversationUpdate() *TestFlow {
	return f.then("send conversation update", func(ctx context.Context) error {
		return f.adapter.SendConversationUpdate(ctx, f.handler)
	})
}

// SendActivity processes an arbitrary activity.
func (f *TestFlow) SendActivity(a core.Activity) *TestFlow {
	return f.then(fmt.Sprintf("send %s activity", a.Type), func(ctx context.Context) error {
		return f.adapter.ProcessActivity(ctx, a, f.handler)
	})
}

// AssertReply expects the next reply to have exactly the given text.
func (f *TestFlow) AssertReply(expected string, description ...string) *TestFlow {
	return f.AssertReplyFunc(func(a core.Activity) error {
		if a.Text != expected {
			return fmt.Errorf("expected reply %q, got %q", expected, a.Text)
		}
		return nil
	}, description...)
}

// AssertReplyOneOf expects the next reply text to be one of candidates.
func (f *TestFlow) AssertReplyOneOf(candidates []string, description ...string) *TestFlow {
	return f.AssertReplyFunc(func(a core.Activity) error {
		if !slices.Contains(candidates, a.Text) {
			return fmt.Errorf("expected one of %q, got %q", candidates, a.Text)
		}
		return nil
	}, description...)
}

// AssertReplyFunc dequeues the next reply and checks it with fn.
func (f *TestFlow) AssertReplyFunc(fn func(a core.Activity) error, description ...string) *TestFlow {
	return f.then(describe("assert reply", description), func(context.Context) error {
		a, ok := f.adapter.GetNextReply()
		if !ok {
			return fmt.Errorf("%w: no reply queued", ErrAssertion)
		}
		if err := fn(a); err != nil {
			return fmt.Errorf("%w: %w", ErrAssertion, err)
		}
		return nil
	})
}

// AssertNoReply expects the reply queue to be empty.
func (f *TestFlow) AssertNoReply(description ...string) *TestFlow {
	return f.then(describe("assert no reply", description), func(context.Context) error {
		if a, ok := f.adapter.GetNextReply(); ok {
			return fmt.Errorf("%w: unexpected reply %q", ErrAssertion, a.Text)
		}
		return nil
	})
}

// StartTest runs the scripted steps.
func (f *TestFlow) StartTest(ctx context.Context) error {
	for i, s := range f.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.name, err)
		}
	}
	return nil
}

func describe(name string, description []string) string {
	if len(description) == 0 {
		return name
	}
	return name + ": " + strings.Join(description, " ")
}
