package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/state"
	"github.com/hupe1980/dialogmesh/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(tc *core.TurnContext) error {
	if !tc.Activity.IsMessage() {
		return nil
	}
	return tc.SendText("echo: " + tc.Activity.Text)
}

func TestAdapter_MiddlewareOrder(t *testing.T) {
	var order []string

	mw := func(name string) core.Middleware {
		return core.MiddlewareFunc(func(tc *core.TurnContext, next core.Handler) error {
			order = append(order, name+">")
			err := next(tc)
			order = append(order, "<"+name)
			return err
		})
	}

	a := NewTestAdapter(CreateConversation(t.Name()), false)
	a.Use(mw("a"), mw("b"))

	err := a.SendText(context.Background(), "hi", func(*core.TurnContext) error {
		order = append(order, "handler")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a>", "b>", "handler", "<b", "<a"}, order)
}

func TestAdapter_ShortCircuit(t *testing.T) {
	a := NewTestAdapter(CreateConversation(t.Name()), false)
	a.Use(core.MiddlewareFunc(func(tc *core.TurnContext, _ core.Handler) error {
		return tc.SendText("blocked")
	}))

	called := false
	require.NoError(t, a.SendText(context.Background(), "hi", func(*core.TurnContext) error {
		called = true
		return nil
	}))

	assert.False(t, called)
	reply, ok := a.GetNextReply()
	require.True(t, ok)
	assert.Equal(t, "blocked", reply.Text)
}

func TestAdapter_TurnError(t *testing.T) {
	boom := errors.New("boom")
	failing := func(*core.TurnContext) error { return boom }

	t.Run("returned", func(t *testing.T) {
		a := NewTestAdapter(CreateConversation(t.Name()), false)
		err := a.SendText(context.Background(), "hi", failing)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("handled", func(t *testing.T) {
		var seen error
		a := NewTestAdapter(CreateConversation(t.Name()), false, func(o *Options) {
			o.OnTurnError = func(tc *core.TurnContext, err error) error {
				seen = err
				return tc.SendText("sorry")
			}
		})

		require.NoError(t, a.SendText(context.Background(), "hi", failing))
		assert.ErrorIs(t, seen, boom)

		reply, ok := a.GetNextReply()
		require.True(t, ok)
		assert.Equal(t, "sorry", reply.Text)
	})

	t.Run("cancelled", func(t *testing.T) {
		a := NewTestAdapter(CreateConversation(t.Name()), false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := a.SendText(ctx, "hi", echo)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTestAdapter_AddressesActivities(t *testing.T) {
	ref := CreateConversation("addressing")
	a := NewTestAdapter(ref, false)

	var inbound core.Activity
	require.NoError(t, a.SendText(context.Background(), "hi", func(tc *core.TurnContext) error {
		inbound = tc.Activity
		return echo(tc)
	}))

	assert.Equal(t, "user1", inbound.From.ID)
	assert.Equal(t, "bot", inbound.Recipient.ID)
	assert.Equal(t, "addressing", inbound.Conversation.ID)
	assert.Equal(t, "test", inbound.ChannelID)
	assert.NotEmpty(t, inbound.ID)
	assert.False(t, inbound.Timestamp.IsZero())

	reply, ok := a.GetNextReply()
	require.True(t, ok)
	assert.Equal(t, "echo: hi", reply.Text)
	assert.Equal(t, "bot", reply.From.ID)
	assert.Equal(t, "user1", reply.Recipient.ID)
	assert.Equal(t, inbound.ID, reply.ReplyToID)

	_, ok = a.GetNextReply()
	assert.False(t, ok)
}

func TestTestAdapter_Traces(t *testing.T) {
	trace := func(tc *core.TurnContext) error {
		return tc.SendActivities(core.NewTraceActivity("debug", "label", 1), core.NewMessageActivity("visible"))
	}

	dropping := NewTestAdapter(CreateConversation(t.Name()), false)
	require.NoError(t, dropping.SendText(context.Background(), "x", trace))
	require.Len(t, dropping.ActiveQueue(), 1)
	assert.Equal(t, "visible", dropping.ActiveQueue()[0].Text)

	keeping := NewTestAdapter(CreateConversation(t.Name()), true)
	require.NoError(t, keeping.SendText(context.Background(), "x", trace))
	queue := keeping.ActiveQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, core.ActivityTypeTrace, queue[0].Type)
}

func TestAutoSaveStateMiddleware(t *testing.T) {
	store := storage.NewMemoryStorage()
	conv := state.NewConversationState(store)

	a := NewTestAdapter(CreateConversation(t.Name()), false)
	a.UseStorage(store).UseState(conv)

	count := func(tc *core.TurnContext) error {
		doc, err := conv.Get(tc)
		if err != nil {
			return err
		}
		n, _ := doc["count"].(float64)
		doc["count"] = n + 1
		return nil
	}

	for range 3 {
		require.NoError(t, a.SendText(context.Background(), "tick", count))
	}

	docs, err := store.Read(context.Background(), "test/conversations/"+t.Name())
	require.NoError(t, err)
	assert.EqualValues(t, 3, docs["test/conversations/"+t.Name()]["count"])
}

func TestTurnValues(t *testing.T) {
	store := storage.NewMemoryStorage()
	a := NewTestAdapter(CreateConversation(t.Name()), false)
	a.UseStorage(store)

	require.NoError(t, a.SendText(context.Background(), "hi", func(tc *core.TurnContext) error {
		v, ok := tc.Get(StorageKey)
		assert.True(t, ok)
		assert.Same(t, store, v)
		return nil
	}))
}
