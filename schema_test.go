package toolcore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSchema_Echo(t *testing.T) {
	type Args struct {
		Value int `json:"value"`
	}
	schemaMap, resolved, err := deriveSchema[Args]()
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "object", schemaMap["type"])
	props, ok := schemaMap["properties"].(map[string]any)
	require.True(t, ok)
	value, ok := props["value"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "integer", value["type"])
	req := requiredSet(schemaMap)
	assert.True(t, req["value"], "value should be required, got %v", schemaMap["required"])
}

func TestDeriveSchema_Idempotent(t *testing.T) {
	type Args struct {
		Name  string   `json:"name"`
		Count int      `json:"count,omitempty"`
		Tags  []string `json:"tags,omitempty"`
	}
	first, _, err := deriveSchema[Args]()
	require.NoError(t, err)
	second, _, err := deriveSchema[Args]()
	require.NoError(t, err)

	a, err := MarshalStable(first)
	require.NoError(t, err)
	b, err := MarshalStable(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b), "re-derivation must be byte-identical")
}

func TestDeriveSchema_NullableKeepsStructure(t *testing.T) {
	type Args struct {
		Limit *int `json:"limit,omitempty"`
	}
	schemaMap, _, err := deriveSchema[Args]()
	require.NoError(t, err)
	props := schemaMap["properties"].(map[string]any)
	limit := props["limit"].(map[string]any)
	types, ok := limit["type"].([]any)
	require.True(t, ok, "pointer field should widen to a type list, got %v", limit["type"])
	assert.Contains(t, types, "null")
	assert.Contains(t, types, "integer")
}

func TestDeriveSchema_StructTagEnrichment(t *testing.T) {
	type Args struct {
		Mode string `json:"mode" description:"Render mode" enum:"fast, full"`
	}
	schemaMap, _, err := deriveSchema[Args]()
	require.NoError(t, err)
	props := schemaMap["properties"].(map[string]any)
	mode := props["mode"].(map[string]any)
	assert.Equal(t, "Render mode", mode["description"])
	assert.Equal(t, []any{"fast", "full"}, mode["enum"])
}

func TestApplyOverride_PatchAndForce(t *testing.T) {
	derived := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"labels": map[string]any{"type": "object"},
			"page":   map[string]any{"type": "integer"},
		},
	}
	out, err := applyOverride(derived, SchemaOverride{
		PatchProperties:  map[string]map[string]any{"page": {"type": "number", "default": float64(1)}},
		ForceStringArray: []string{"labels"},
	})
	require.NoError(t, err)

	props := out["properties"].(map[string]any)
	page := props["page"].(map[string]any)
	assert.Equal(t, "number", page["type"])
	assert.Equal(t, float64(1), page["default"])
	labels := props["labels"].(map[string]any)
	assert.Equal(t, "array", labels["type"])
	assert.Equal(t, map[string]any{"type": "string"}, labels["items"])

	// The derived map itself must stay untouched.
	orig := derived["properties"].(map[string]any)["page"].(map[string]any)
	assert.Equal(t, "integer", orig["type"])
}

func TestApplyOverride_Replace(t *testing.T) {
	replacement := map[string]any{
		"type":       "object",
		"properties": map[string]any{"q": map[string]any{"type": "string"}},
		"required":   []any{"q"},
	}
	out, err := applyOverride(map[string]any{"type": "object"}, SchemaOverride{Replace: replacement})
	require.NoError(t, err)
	assert.Equal(t, replacement, out)
}

func TestSchemaChanged(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{"type": "integer"},
				"name":  map[string]any{"type": "string"},
			},
			"required": []any{"value", "name"},
		}
	}

	t.Run("Identical", func(t *testing.T) {
		assert.False(t, SchemaChanged(base(), base()))
	})
	t.Run("RequiredShrank", func(t *testing.T) {
		updated := base()
		updated["required"] = []any{"value"}
		assert.True(t, SchemaChanged(base(), updated))
	})
	t.Run("TypeWidened", func(t *testing.T) {
		updated := base()
		updated["properties"].(map[string]any)["value"] = map[string]any{"type": "number"}
		assert.True(t, SchemaChanged(base(), updated))
	})
	t.Run("DefaultAddedWithoutRequiredChange", func(t *testing.T) {
		// Adding a default is a change even when required membership alone
		// did not shrink.
		updated := base()
		updated["properties"].(map[string]any)["name"] = map[string]any{"type": "string", "default": "x"}
		assert.True(t, SchemaChanged(base(), updated))
	})
	t.Run("PropertyRemoved", func(t *testing.T) {
		updated := base()
		delete(updated["properties"].(map[string]any), "name")
		updated["required"] = []any{"value", "name"}
		assert.True(t, SchemaChanged(base(), updated))
	})
}

func TestNewTool_SchemaOverrideRecompiles(t *testing.T) {
	type Args struct {
		Labels map[string]any `json:"labels,omitempty"`
	}
	desc, err := NewTool("set_labels", "Set labels", func(_ context.Context, _ Args) (string, error) {
		return "ok", nil
	}, WithSchemaOverride(SchemaOverride{ForceStringArray: []string{"labels"}}))
	require.NoError(t, err)
	props := desc.Schema["properties"].(map[string]any)
	labels := props["labels"].(map[string]any)
	assert.Equal(t, "array", labels["type"])
	// The recompiled validator must enforce the overridden shape.
	err = validateAgainstSchema(desc.Name, desc.resolved, map[string]any{"labels": map[string]any{"a": "b"}})
	require.Error(t, err)
	err = validateAgainstSchema(desc.Name, desc.resolved, map[string]any{"labels": []any{"a", "b"}})
	require.NoError(t, err)
}

func TestNewTool_ImplRejectsMalformedJSON(t *testing.T) {
	type Args struct {
		Value int `json:"value"`
	}
	desc, err := NewTool("echo", "Echo a value", func(_ context.Context, a Args) (int, error) {
		return a.Value, nil
	})
	require.NoError(t, err)

	_, err = desc.Impl(context.Background(), json.RawMessage(`{"value":`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "echo", ve.Tool)
}
