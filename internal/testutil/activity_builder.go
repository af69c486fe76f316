package testutil

import (
	"time"

	"github.com/hupe1980/dialogmesh/core"
)

// Reference returns the conversation reference used by ActivityBuilder
// defaults: channel "test", user "user1", bot "bot", conversation "convo1".
func Reference() core.ConversationReference {
	return core.ConversationReference{
		ChannelID:    "test",
		User:         core.ChannelAccount{ID: "user1", Name: "User1", Role: "user"},
		Bot:          core.ChannelAccount{ID: "bot", Name: "Bot", Role: "bot"},
		Conversation: core.ConversationAccount{ID: "convo1", Name: "convo1"},
	}
}

// ActivityBuilder provides a fluent helper for constructing inbound
// activities in tests.
// Example:
//
//	a := NewActivityBuilder().Text("hello").User("u2").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type ActivityBuilder struct {
	typ     string
	id      string
	text    string
	ref     core.ConversationReference
	members []core.ChannelAccount
	value   any
}

// NewActivityBuilder creates a builder for a user message on the default reference.
func NewActivityBuilder() *ActivityBuilder {
	return &ActivityBuilder{typ: core.ActivityTypeMessage, ref: Reference()}
}

// Type overrides the activity type (chainable).
func (b *ActivityBuilder) Type(t string) *ActivityBuilder { b.typ = t; return b }

// ID sets the activity id (chainable).
func (b *ActivityBuilder) ID(id string) *ActivityBuilder { b.id = id; return b }

// Text sets the message text (chainable).
func (b *ActivityBuilder) Text(t string) *ActivityBuilder { b.text = t; return b }

// User overrides the sending user id (chainable).
func (b *ActivityBuilder) User(id string) *ActivityBuilder { b.ref.User.ID = id; return b }

// Conversation overrides the conversation id (chainable).
func (b *ActivityBuilder) Conversation(id string) *ActivityBuilder {
	b.ref.Conversation.ID = id
	return b
}

// Channel overrides the channel id (chainable).
func (b *ActivityBuilder) Channel(id string) *ActivityBuilder { b.ref.ChannelID = id; return b }

// MembersAdded turns the activity into a conversation update adding the
// given members (chainable).
func (b *ActivityBuilder) MembersAdded(members ...core.ChannelAccount) *ActivityBuilder {
	b.typ = core.ActivityTypeConversationUpdate
	b.members = append(b.members, members...)
	return b
}

// Value sets the structured payload (chainable).
func (b *ActivityBuilder) Value(v any) *ActivityBuilder { b.value = v; return b }

// Build constructs the core.Activity value.
func (b *ActivityBuilder) Build() core.Activity {
	a := core.Activity{
		Type:         b.typ,
		ID:           b.id,
		Text:         b.text,
		Value:        b.value,
		MembersAdded: append([]core.ChannelAccount(nil), b.members...),
		Timestamp:    time.Now().UTC(),
	}
	return a.ApplyConversationReference(b.ref, true)
}
