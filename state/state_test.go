package state

import (
	"context"
	"testing"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/testutil"
	"github.com/hupe1980/dialogmesh/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStorage records writes so change detection can be asserted.
type countingStorage struct {
	core.Storage
	writes int
}

func (c *countingStorage) Write(ctx context.Context, changes map[string]core.Document) error {
	c.writes++
	return c.Storage.Write(ctx, changes)
}

func newTurn(text string) *core.TurnContext {
	a := testutil.NewActivityBuilder().Text(text).Build()
	return core.NewTurnContext(context.Background(), nil, a, nil)
}

func TestKeys(t *testing.T) {
	a := testutil.NewActivityBuilder().Build()

	key, err := ConversationKey(a)
	require.NoError(t, err)
	assert.Equal(t, "test/conversations/convo1", key)

	key, err = UserKey(a)
	require.NoError(t, err)
	assert.Equal(t, "test/users/user1", key)

	_, err = UserKey(core.Activity{ChannelID: "test"})
	assert.ErrorIs(t, err, ErrMissingKeyInfo)
	_, err = ConversationKey(core.Activity{})
	assert.ErrorIs(t, err, ErrMissingKeyInfo)
}

func TestBotState_PersistsAcrossTurns(t *testing.T) {
	store := storage.NewMemoryStorage()
	user := NewUserState(store)

	tc := newTurn("first")
	doc, err := user.Get(tc)
	require.NoError(t, err)
	doc["name"] = "luhan"
	require.NoError(t, user.SaveChanges(tc, false))

	next := newTurn("second")
	doc, err = user.Get(next)
	require.NoError(t, err)
	assert.Equal(t, "luhan", doc["name"])
}

func TestBotState_SkipsUnchangedWrites(t *testing.T) {
	store := &countingStorage{Storage: storage.NewMemoryStorage()}
	convo := NewConversationState(store)

	tc := newTurn("hi")
	require.NoError(t, convo.Load(tc, false))
	require.NoError(t, convo.SaveChanges(tc, false))
	assert.Equal(t, 0, store.writes)

	doc, err := convo.Get(tc)
	require.NoError(t, err)
	doc["k"] = "v"
	require.NoError(t, convo.SaveChanges(tc, false))
	assert.Equal(t, 1, store.writes)

	// A second save in the same turn neither rewrites nor conflicts.
	require.NoError(t, convo.SaveChanges(tc, false))
	assert.Equal(t, 1, store.writes)

	doc["k"] = "w"
	require.NoError(t, convo.SaveChanges(tc, false))
	assert.Equal(t, 2, store.writes)

	require.NoError(t, convo.SaveChanges(tc, true))
	assert.Equal(t, 3, store.writes)
}

func TestBotState_LoadKeepsCacheUnlessForced(t *testing.T) {
	store := storage.NewMemoryStorage()
	convo := NewConversationState(store)

	tc := newTurn("hi")
	doc, err := convo.Get(tc)
	require.NoError(t, err)
	doc["pending"] = true

	require.NoError(t, convo.Load(tc, false))
	doc, err = convo.Get(tc)
	require.NoError(t, err)
	assert.Equal(t, true, doc["pending"])

	require.NoError(t, convo.Load(tc, true))
	doc, err = convo.Get(tc)
	require.NoError(t, err)
	assert.NotContains(t, doc, "pending")
}

func TestBotState_ClearAndDelete(t *testing.T) {
	store := storage.NewMemoryStorage()
	user := NewUserState(store)

	tc := newTurn("hi")
	doc, err := user.Get(tc)
	require.NoError(t, err)
	doc["name"] = "luhan"
	require.NoError(t, user.SaveChanges(tc, false))

	user.Clear(tc)
	require.NoError(t, user.SaveChanges(tc, false))

	next := newTurn("again")
	doc, err = user.Get(next)
	require.NoError(t, err)
	assert.NotContains(t, doc, "name")

	require.NoError(t, user.Delete(next))
	docs, err := store.Read(context.Background(), "test/users/user1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBotState_ConcurrentTurnsConflict(t *testing.T) {
	store := storage.NewMemoryStorage()
	convo := NewConversationState(store)

	a := newTurn("a")
	b := newTurn("b")

	docA, err := convo.Get(a)
	require.NoError(t, err)
	docB, err := convo.Get(b)
	require.NoError(t, err)

	docA["turn"] = "a"
	require.NoError(t, convo.SaveChanges(a, false))

	docB["turn"] = "b"
	docB[core.ETagKey] = "stale"
	assert.ErrorIs(t, convo.SaveChanges(b, false), storage.ErrPreconditionFailed)
}
