// Package state implements per-turn caching of conversation and user state
// documents on top of a core.Storage. A BotState loads its document once per
// turn into the TurnContext, hands out the live map to callers, and writes it
// back only when its content changed.
package state

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hupe1980/dialogmesh/core"
)

// ErrMissingKeyInfo is returned when the inbound activity lacks the ids
// required to derive a storage key.
var ErrMissingKeyInfo = errors.New("state: activity missing key information")

// KeyFunc derives the storage key of a state document from an activity.
type KeyFunc func(a core.Activity) (string, error)

// ConversationKey scopes a document to the conversation.
func ConversationKey(a core.Activity) (string, error) {
	if a.ChannelID == "" || a.Conversation.ID == "" {
		return "", fmt.Errorf("%w: channel or conversation id", ErrMissingKeyInfo)
	}
	return fmt.Sprintf("%s/conversations/%s", a.ChannelID, a.Conversation.ID), nil
}

// UserKey scopes a document to the sending user.
func UserKey(a core.Activity) (string, error) {
	if a.ChannelID == "" || a.From.ID == "" {
		return "", fmt.Errorf("%w: channel or user id", ErrMissingKeyInfo)
	}
	return fmt.Sprintf("%s/users/%s", a.ChannelID, a.From.ID), nil
}

// BotState is a named state document bound to a storage and a key strategy.
type BotState struct {
	name    string
	storage core.Storage
	keyFn   KeyFunc
}

// cachedState is the per-turn snapshot kept in TurnContext state.
type cachedState struct {
	doc  core.Document
	hash [32]byte
}

// New creates a BotState. name must be unique per turn pipeline.
func New(name string, storage core.Storage, keyFn KeyFunc) *BotState {
	return &BotState{name: name, storage: storage, keyFn: keyFn}
}

// NewConversationState creates conversation scoped state.
func NewConversationState(storage core.Storage) *BotState {
	return New("ConversationState", storage, ConversationKey)
}

// NewUserState creates user scoped state.
func NewUserState(storage core.Storage) *BotState {
	return New("UserState", storage, UserKey)
}

// Name returns the turn state cache key.
func (b *BotState) Name() string { return b.name }

// Load reads the document into the turn cache. Unless force is set, an
// already loaded document is kept.
func (b *BotState) Load(tc *core.TurnContext, force bool) error {
	if _, ok := b.cached(tc); ok && !force {
		return nil
	}

	key, err := b.keyFn(tc.Activity)
	if err != nil {
		return err
	}

	docs, err := b.storage.Read(tc.Context, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", b.name, err)
	}

	doc, ok := docs[key]
	if !ok {
		doc = core.Document{}
	}

	hash, err := hashDocument(doc)
	if err != nil {
		return err
	}

	tc.Set(b.name, &cachedState{doc: doc, hash: hash})

	return nil
}

// Get returns the live document for the current turn, loading it first when
// needed. Mutations are persisted by SaveChanges.
func (b *BotState) Get(tc *core.TurnContext) (core.Document, error) {
	if err := b.Load(tc, false); err != nil {
		return nil, err
	}
	cs, _ := b.cached(tc)
	return cs.doc, nil
}

// SaveChanges writes the cached document when it changed since Load, or
// unconditionally when force is set.
func (b *BotState) SaveChanges(tc *core.TurnContext, force bool) error {
	cs, ok := b.cached(tc)
	if !ok {
		return nil
	}

	hash, err := hashDocument(cs.doc)
	if err != nil {
		return err
	}
	if !force && hash == cs.hash {
		return nil
	}

	key, err := b.keyFn(tc.Activity)
	if err != nil {
		return err
	}

	if err := b.storage.Write(tc.Context, map[string]core.Document{key: cs.doc}); err != nil {
		return fmt.Errorf("save %s: %w", b.name, err)
	}

	// Refresh the eTag so a second save within the turn does not conflict.
	docs, err := b.storage.Read(tc.Context, key)
	if err != nil {
		return fmt.Errorf("reload %s: %w", b.name, err)
	}
	if fresh, ok := docs[key]; ok {
		cs.doc[core.ETagKey] = fresh[core.ETagKey]
	}

	cs.hash, err = hashDocument(cs.doc)

	return err
}

// Clear empties the cached document; the change is persisted by SaveChanges.
func (b *BotState) Clear(tc *core.TurnContext) {
	var etag any
	if cs, ok := b.cached(tc); ok {
		etag = cs.doc[core.ETagKey]
	}
	doc := core.Document{}
	if etag != nil {
		doc[core.ETagKey] = etag
	}
	tc.Set(b.name, &cachedState{doc: doc})
}

// Delete removes the document from storage and the turn cache.
func (b *BotState) Delete(tc *core.TurnContext) error {
	key, err := b.keyFn(tc.Activity)
	if err != nil {
		return err
	}
	tc.Set(b.name, nil)
	return b.storage.Delete(tc.Context, key)
}

func (b *BotState) cached(tc *core.TurnContext) (*cachedState, bool) {
	v, ok := tc.Get(b.name)
	if !ok {
		return nil, false
	}
	cs, ok := v.(*cachedState)
	return cs, ok && cs != nil
}

func hashDocument(doc core.Document) ([32]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return [32]byte{}, fmt.Errorf("hash state: %w", err)
	}
	return sha256.Sum256(data), nil
}
