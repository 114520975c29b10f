package toolcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGate_ProtectedRefDenied(t *testing.T) {
	g := NewWriteGate("main", PolicyProtected, false)

	err := g.Check("merge_pr", "main")
	require.Error(t, err)
	var ge *GateError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "merge_pr", ge.Tool)
	assert.Equal(t, "main", ge.Protected)

	assert.NoError(t, g.Check("merge_pr", "feature/x"))
}

func TestWriteGate_NoTargetDenied(t *testing.T) {
	g := NewWriteGate("main", PolicyProtected, false)
	err := g.Check("force_push", "")
	require.Error(t, err)

	g.Authorize(true)
	assert.NoError(t, g.Check("force_push", ""))
}

func TestWriteGate_RefsHeadsNormalized(t *testing.T) {
	g := NewWriteGate("refs/heads/main", PolicyProtected, false)
	assert.Equal(t, "main", g.ProtectedRef())
	assert.Error(t, g.Check("push", "refs/heads/main"))
	assert.Error(t, g.Check("push", "main"))
	assert.NoError(t, g.Check("push", "refs/heads/dev"))
}

func TestWriteGate_AuthorizeIdempotent(t *testing.T) {
	g := NewWriteGate("main", PolicyProtected, false)
	g.Authorize(true)
	g.Authorize(true)
	assert.True(t, g.Allowed())
	assert.NoError(t, g.Check("push", "main"))
	g.Authorize(false)
	assert.False(t, g.Allowed())
	assert.Error(t, g.Check("push", "main"))
}

func TestWriteGate_AlwaysAllowPolicy(t *testing.T) {
	g := NewWriteGate("main", PolicyAlwaysAllow, false)
	assert.NoError(t, g.Check("push", "main"))
	assert.NoError(t, g.Check("push", ""))
	assert.NoError(t, g.Check("push", "feature/x"))
}
