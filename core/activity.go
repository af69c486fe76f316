package core

import (
	"time"

	"github.com/google/uuid"
)

// Activity types understood by the dialog runtime and adapters.
const (
	ActivityTypeMessage            = "message"
	ActivityTypeConversationUpdate = "conversationUpdate"
	ActivityTypeTrace              = "trace"
)

// ChannelAccount identifies a participant (user or bot) on a channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationReference captures everything required to address a reply to an
// existing conversation.
type ConversationReference struct {
	ActivityID   string              `json:"activity_id,omitempty"`
	User         ChannelAccount      `json:"user"`
	Bot          ChannelAccount      `json:"bot"`
	Conversation ConversationAccount `json:"conversation"`
	ChannelID    string              `json:"channel_id"`
	ServiceURL   string              `json:"service_url,omitempty"`
}

// Activity is the unit of communication exchanged between a channel and the
// bot. After it has been sent it should be treated as immutable. Content is
// plain text (Text / Speak); Value carries structured payloads.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`
	ChannelID    string              `json:"channel_id,omitempty"`
	From         ChannelAccount      `json:"from"`
	Recipient    ChannelAccount      `json:"recipient"`
	Conversation ConversationAccount `json:"conversation"`
	Text         string              `json:"text,omitempty"`
	Speak        string              `json:"speak,omitempty"`
	MembersAdded []ChannelAccount    `json:"members_added,omitempty"`
	ReplyToID    string              `json:"reply_to_id,omitempty"`
	ServiceURL   string              `json:"service_url,omitempty"`
	Value        any                 `json:"value,omitempty"`
	Name         string              `json:"name,omitempty"`
	Label        string              `json:"label,omitempty"`
}

// NewMessageActivity creates an outbound message activity with the given text.
func NewMessageActivity(text string) Activity {
	return Activity{Type: ActivityTypeMessage, Text: text, Timestamp: time.Now().UTC()}
}

// NewTraceActivity creates a trace activity. Trace activities are dropped by
// channels unless explicitly requested (e.g. for debugging).
func NewTraceActivity(name, label string, value any) Activity {
	return Activity{Type: ActivityTypeTrace, Name: name, Label: label, Value: value, Timestamp: time.Now().UTC()}
}

// NewID generates a new unique identifier for activities and storage eTags.
func NewID() string { return uuid.NewString() }

// IsMessage reports whether the activity is a message.
func (a Activity) IsMessage() bool { return a.Type == ActivityTypeMessage }

// CreateReply returns a message addressed back to the sender of a.
func (a Activity) CreateReply(text string) Activity {
	return Activity{
		Type:         ActivityTypeMessage,
		Timestamp:    time.Now().UTC(),
		ChannelID:    a.ChannelID,
		From:         a.Recipient,
		Recipient:    a.From,
		Conversation: a.Conversation,
		ReplyToID:    a.ID,
		ServiceURL:   a.ServiceURL,
		Text:         text,
	}
}

// ConversationReference extracts the reference identifying a's conversation.
func (a Activity) ConversationReference() ConversationReference {
	return ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Bot:          a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
	}
}

// ApplyConversationReference stamps channel, conversation and participants
// from ref onto a. When incoming is true the activity is treated as sent by
// the user to the bot, otherwise as a bot reply.
func (a Activity) ApplyConversationReference(ref ConversationReference, incoming bool) Activity {
	a.ChannelID = ref.ChannelID
	a.ServiceURL = ref.ServiceURL
	a.Conversation = ref.Conversation
	if incoming {
		a.From = ref.User
		a.Recipient = ref.Bot
		if ref.ActivityID != "" {
			a.ID = ref.ActivityID
		}
	} else {
		a.From = ref.Bot
		a.Recipient = ref.User
		if ref.ActivityID != "" {
			a.ReplyToID = ref.ActivityID
		}
	}
	return a
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
func (a Activity) UnixSeconds() float64 { return float64(a.Timestamp.UnixNano()) / 1e9 }
