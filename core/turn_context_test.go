package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []Activity
	err  error
}

func (s *recordingSender) SendActivities(_ context.Context, as []Activity) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, as...)
	return nil
}

func newTurnContextForTest(sender Sender) *TurnContext {
	in := NewMessageActivity("hi").ApplyConversationReference(testReference(), true)
	return NewTurnContext(context.Background(), sender, in, nil)
}

func TestTurnContext_SendActivityStampsReference(t *testing.T) {
	sender := &recordingSender{}
	tc := newTurnContextForTest(sender)

	require.NoError(t, tc.SendText("hello"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "hello", sender.sent[0].Text)
	assert.Equal(t, "bot", sender.sent[0].From.ID)
	assert.Equal(t, "user1", sender.sent[0].Recipient.ID)
	assert.Equal(t, "convo1", sender.sent[0].Conversation.ID)
	assert.True(t, tc.Responded())
}

func TestTurnContext_TraceDoesNotMarkResponded(t *testing.T) {
	sender := &recordingSender{}
	tc := newTurnContextForTest(sender)

	require.NoError(t, tc.SendActivity(NewTraceActivity("debug", "", nil)))

	assert.Len(t, sender.sent, 1)
	assert.False(t, tc.Responded())
}

func TestTurnContext_HooksRunInOrder(t *testing.T) {
	sender := &recordingSender{}
	tc := newTurnContextForTest(sender)

	var order []string
	tc.OnSendActivities(func(_ *TurnContext, as []Activity) ([]Activity, error) {
		order = append(order, "first")
		as[0].Text += "!"
		return as, nil
	})
	tc.OnSendActivities(func(_ *TurnContext, as []Activity) ([]Activity, error) {
		order = append(order, "second")
		return as, nil
	})

	require.NoError(t, tc.SendText("hey"))

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "hey!", sender.sent[0].Text)
}

func TestTurnContext_HookErrorStopsDelivery(t *testing.T) {
	sender := &recordingSender{}
	tc := newTurnContextForTest(sender)
	tc.OnSendActivities(func(_ *TurnContext, _ []Activity) ([]Activity, error) {
		return nil, assert.AnError
	})

	err := tc.SendText("x")

	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, sender.sent)
	assert.False(t, tc.Responded())
}

func TestTurnContext_SenderError(t *testing.T) {
	boom := errors.New("boom")
	tc := newTurnContextForTest(&recordingSender{err: boom})

	assert.ErrorIs(t, tc.SendText("x"), boom)
	assert.False(t, tc.Responded())
}

func TestTurnContext_TurnState(t *testing.T) {
	tc := newTurnContextForTest(&recordingSender{})

	_, ok := tc.Get("missing")
	assert.False(t, ok)

	tc.Set("k", 1)
	v, ok := tc.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMiddlewareFunc(t *testing.T) {
	called := false
	m := MiddlewareFunc(func(tc *TurnContext, next Handler) error {
		return next(tc)
	})

	err := m.OnTurn(newTurnContextForTest(nil), func(*TurnContext) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}
