package dialog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dialogmesh/core"
	"github.com/hupe1980/dialogmesh/internal/testutil"
	"github.com/hupe1980/dialogmesh/resource"
)

type recorder struct {
	sent []core.Activity
}

func (r *recorder) SendActivities(_ context.Context, activities []core.Activity) error {
	r.sent = append(r.sent, activities...)
	return nil
}

type harness struct {
	t    *testing.T
	mgr  *Manager
	rec  *recorder
	seen int
}

func newExplorer(t *testing.T, files map[string]string) *resource.Explorer {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	explorer := resource.NewExplorer()
	require.NoError(t, explorer.AddFS(fsys, "."))
	return explorer
}

func newHarness(t *testing.T, files map[string]string, root string, optFns ...func(o *Options)) *harness {
	t.Helper()
	d, err := Load(newExplorer(t, files), root)
	require.NoError(t, err)
	return &harness{t: t, mgr: NewManager(d, optFns...), rec: &recorder{}}
}

func (h *harness) turn(a core.Activity) (TurnResult, []string, error) {
	h.t.Helper()
	tc := core.NewTurnContext(context.Background(), h.rec, a, nil)
	res, err := h.mgr.OnTurn(tc)

	var texts []string
	for _, act := range h.rec.sent[h.seen:] {
		if act.Type == core.ActivityTypeMessage {
			texts = append(texts, act.Text)
		}
	}
	h.seen = len(h.rec.sent)

	return res, texts, err
}

func (h *harness) say(text string) []string {
	h.t.Helper()
	_, texts, err := h.turn(testutil.NewActivityBuilder().Text(text).Build())
	require.NoError(h.t, err)
	return texts
}

func (h *harness) join() []string {
	h.t.Helper()
	ref := testutil.Reference()
	_, texts, err := h.turn(testutil.NewActivityBuilder().MembersAdded(ref.User).Build())
	require.NoError(h.t, err)
	return texts
}
