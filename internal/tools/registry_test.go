package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name string
	kind Kind
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Kind() Kind          { return f.kind }
func (f fakeTool) Description() string { return "fake " + f.name }
func (f fakeTool) Commands() []string  { return []string{f.name} }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(fakeTool{"zeta", KindText}))
	require.NoError(t, r.Register(fakeTool{"alpha", KindText}))
	require.NoError(t, r.Register(fakeTool{"beta", KindFile}))

	assert.Error(t, r.Register(fakeTool{"Alpha", KindKeys}), "names are case-insensitive")
	assert.Error(t, r.Register(fakeTool{" ", KindKeys}))

	var names []string
	for _, tool := range r.All() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"beta", "alpha", "zeta"}, names)

	got, ok := r.Lookup("ZETA")
	require.True(t, ok)
	assert.Equal(t, KindText, got.Kind())

	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	assert.Len(t, r.ByKind(KindText), 2)
	assert.Empty(t, r.ByKind(KindAudit))
}

func TestDefaultRegistry(t *testing.T) {
	all := Default().All()
	require.NotEmpty(t, all)

	seen := map[string]bool{}
	for _, tool := range all {
		assert.NotEmpty(t, tool.Description(), tool.Name())
		assert.NotEmpty(t, tool.Commands(), tool.Name())
		for _, c := range tool.Commands() {
			assert.False(t, seen[c], "command %q claimed twice", c)
			seen[c] = true
		}
	}
	for _, c := range []string{"encrypt", "decrypt", "verify", "inspect", "sign", "verify-signature", "text", "keys", "log"} {
		assert.True(t, seen[c], "no tool provides %q", c)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
