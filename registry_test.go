package toolcore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopTool(t *testing.T, name string) *Descriptor {
	t.Helper()
	desc, err := NewRawTool(name, "test tool",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) { return nil, nil },
	)
	require.NoError(t, err)
	return desc
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(nopTool(t, "get_file")))
	err := reg.Register(nopTool(t, "get_file"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_FindExact(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(nopTool(t, "create_branch")))
	d, ok := reg.Find("create_branch")
	require.True(t, ok)
	assert.Equal(t, "create_branch", d.Name)
}

func TestRegistry_FindVariants(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(nopTool(t, "create_branch")))

	for _, variant := range []string{
		"create-branch",
		"/create_branch",
		"repo.create_branch",
		"Create_Branch",
		"createBranch",
		"/tools.create-branch",
	} {
		t.Run(variant, func(t *testing.T) {
			d, ok := reg.Find(variant)
			require.True(t, ok, "variant %q should resolve", variant)
			assert.Equal(t, "create_branch", d.Name)
		})
	}
}

func TestRegistry_FindAmbiguousCanonical(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(nopTool(t, "get_file")))
	require.NoError(t, reg.Register(nopTool(t, "getfile")))

	// Both canonicalize to "getfile"; exact lookups still work.
	d, ok := reg.Find("getfile")
	require.True(t, ok)
	assert.Equal(t, "getfile", d.Name)
	d, ok = reg.Find("get_file")
	require.True(t, ok)
	assert.Equal(t, "get_file", d.Name)

	// "GetFile" resolves in the case-insensitive layer before
	// canonicalization is ever consulted.
	d, ok = reg.Find("GetFile")
	require.True(t, ok)
	assert.Equal(t, "getfile", d.Name)

	// A variant that only resolves through canonicalization is ambiguous:
	// refuse rather than guess.
	_, ok = reg.Find("get-file")
	assert.False(t, ok)
	_, ok = reg.Find("Get_File ")
	assert.False(t, ok)
}

func TestRegistry_FindMissing(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Find("nope")
	assert.False(t, ok)
}

func TestRegistry_ListSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(nopTool(t, name)))
	}
	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "mid", list[1].Name)
	assert.Equal(t, "zeta", list[2].Name)
}

func TestCanonicalToolName(t *testing.T) {
	assert.Equal(t, "createbranch", canonicalToolName("create_branch"))
	assert.Equal(t, "createbranch", canonicalToolName("Create-Branch"))
	assert.Equal(t, "createbranch", canonicalToolName("createBranch"))
	assert.Equal(t, "createbranch", canonicalToolName("/repo.create_branch"))
	// Non-ASCII names fold the same way the case-insensitive lookup folds.
	assert.Equal(t, "créebranche", canonicalToolName("Crée_Branche"))
}

func TestRegistry_FindNonASCIIVariant(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(nopTool(t, "crée_branche")))

	d, ok := reg.Find("Crée-Branche")
	require.True(t, ok)
	assert.Equal(t, "crée_branche", d.Name)
}
