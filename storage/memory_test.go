package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var (
	_ core.Storage = (*MemoryStorage)(nil)
	_ core.Storage = (*SQLiteStorage)(nil)
)

// backends returns one fresh instance per implementation so every behavior
// is verified against both.
func backends(t *testing.T) map[string]core.Storage {
	t.Helper()

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]core.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func TestStorage_ReadWriteRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Write(ctx, map[string]core.Document{
				"a": {"name": "luhan", "count": 2, "nested": map[string]any{"ok": true}},
			})
			require.NoError(t, err)

			docs, err := s.Read(ctx, "a", "missing")
			require.NoError(t, err)
			require.Len(t, docs, 1)

			doc := docs["a"]
			assert.Equal(t, "luhan", doc["name"])
			assert.Equal(t, float64(2), doc["count"])
			assert.Equal(t, map[string]any{"ok": true}, doc["nested"])
			assert.NotEmpty(t, doc[core.ETagKey])
		})
	}
}

func TestStorage_ReadReturnsCopies(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, map[string]core.Document{"a": {"v": "x"}}))

			first, err := s.Read(ctx, "a")
			require.NoError(t, err)
			first["a"]["v"] = "mutated"

			second, err := s.Read(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "x", second["a"]["v"])
		})
	}
}

func TestStorage_ETagConflict(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, map[string]core.Document{"a": {"v": 1}}))

			docs, err := s.Read(ctx, "a")
			require.NoError(t, err)
			stale := docs["a"]

			fresh := core.Document{"v": 2, core.ETagKey: stale[core.ETagKey]}
			require.NoError(t, s.Write(ctx, map[string]core.Document{"a": fresh}))

			stale["v"] = 3
			err = s.Write(ctx, map[string]core.Document{"a": stale})
			assert.ErrorIs(t, err, ErrPreconditionFailed)

			wildcard := core.Document{"v": 4, core.ETagKey: core.ETagAny}
			require.NoError(t, s.Write(ctx, map[string]core.Document{"a": wildcard}))

			docs, err = s.Read(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, float64(4), docs["a"]["v"])
		})
	}
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, map[string]core.Document{"a": {"v": 1}, "b": {"v": 2}}))
			require.NoError(t, s.Delete(ctx, "a", "unknown"))

			docs, err := s.Read(ctx, "a", "b")
			require.NoError(t, err)
			assert.NotContains(t, docs, "a")
			assert.Contains(t, docs, "b")
		})
	}
}

func TestStorage_WriteIsAtomic(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Write(ctx, map[string]core.Document{
				"a": {"v": 1},
				"b": {"bad": make(chan int)},
				"c": {"v": 2},
			})
			require.Error(t, err)

			docs, err := s.Read(ctx, "a", "b", "c")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStorage()
	_, err := s.Read(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Write(ctx, map[string]core.Document{"a": {}}), context.Canceled)
}
