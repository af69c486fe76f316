package lg

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dialogmesh/resource"
)

func TestLoad_ResolvesImports(t *testing.T) {
	fsys := fstest.MapFS{
		"common.lg":        {Data: []byte("[shared](./shared/base.lg)\n[again](base.lg)\n\n# Greet(user)\n- ${user.name} ${Tail()}")},
		"shared/base.lg":   {Data: []byte("# Tail\n- nice to talk to you!")},
		"shared/other.txt": {Data: []byte("ignored")},
	}

	explorer := resource.NewExplorer()
	require.NoError(t, explorer.AddFS(fsys, "."))

	tmpl, err := Load(explorer, "common.lg")
	require.NoError(t, err)
	assert.Equal(t, []string{"Greet", "Tail"}, tmpl.Names())

	v, err := tmpl.Generate("${Greet(user)}", userScope(t, map[string]any{"name": "luhan"}))
	require.NoError(t, err)
	assert.Equal(t, "luhan nice to talk to you!", v.AsString())
}

func TestLoad_MissingImport(t *testing.T) {
	fsys := fstest.MapFS{
		"common.lg": {Data: []byte("[x](missing.lg)\n# A\n- a")},
	}

	explorer := resource.NewExplorer()
	require.NoError(t, explorer.AddFS(fsys, "."))

	_, err := Load(explorer, "common.lg")
	require.ErrorIs(t, err, resource.ErrResourceNotFound)
}
