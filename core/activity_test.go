package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testReference() ConversationReference {
	return ConversationReference{
		ChannelID:    "test",
		User:         ChannelAccount{ID: "user1", Name: "User1", Role: "user"},
		Bot:          ChannelAccount{ID: "bot", Name: "Bot", Role: "bot"},
		Conversation: ConversationAccount{ID: "convo1", Name: "Convo1"},
		ServiceURL:   "https://test.com",
	}
}

func TestActivity_CreateReply(t *testing.T) {
	in := Activity{Type: ActivityTypeMessage, ID: "1", Text: "hi"}.ApplyConversationReference(testReference(), true)

	reply := in.CreateReply("hello")

	assert.Equal(t, ActivityTypeMessage, reply.Type)
	assert.Equal(t, "hello", reply.Text)
	assert.Equal(t, "bot", reply.From.ID)
	assert.Equal(t, "user1", reply.Recipient.ID)
	assert.Equal(t, "convo1", reply.Conversation.ID)
	assert.Equal(t, "1", reply.ReplyToID)
	assert.False(t, reply.Timestamp.IsZero())
}

func TestActivity_ApplyConversationReference(t *testing.T) {
	ref := testReference()

	in := NewMessageActivity("ping").ApplyConversationReference(ref, true)
	assert.Equal(t, "user1", in.From.ID)
	assert.Equal(t, "bot", in.Recipient.ID)
	assert.Equal(t, "test", in.ChannelID)

	out := NewMessageActivity("pong").ApplyConversationReference(ref, false)
	assert.Equal(t, "bot", out.From.ID)
	assert.Equal(t, "user1", out.Recipient.ID)

	back := in.ConversationReference()
	assert.Equal(t, ref.Conversation, back.Conversation)
	assert.Equal(t, ref.User, back.User)
	assert.Equal(t, ref.Bot, back.Bot)
}

func TestActivity_Helpers(t *testing.T) {
	assert.True(t, NewMessageActivity("x").IsMessage())

	trace := NewTraceActivity("name", "label", 42)
	assert.False(t, trace.IsMessage())
	assert.Equal(t, ActivityTypeTrace, trace.Type)
	assert.Equal(t, 42, trace.Value)

	assert.NotEqual(t, NewID(), NewID())
	assert.Greater(t, trace.UnixSeconds(), float64(0))
}
