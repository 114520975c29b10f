package toolcore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ToolOption configures a Descriptor built by NewTool or NewRawTool.
type ToolOption func(*toolOptions)

type toolOptions struct {
	mutating bool
	tags     []string
	timeout  time.Duration
	override *SchemaOverride
}

// WithMutating classifies the tool as mutating: its calls pass through the
// WriteGate before execution.
func WithMutating() ToolOption {
	return func(o *toolOptions) { o.mutating = true }
}

// WithToolTags sets UI/catalog metadata tags.
func WithToolTags(tags ...string) ToolOption {
	return func(o *toolOptions) { o.tags = tags }
}

// WithToolTimeout sets a per-tool execution timeout overriding the dispatcher
// default.
func WithToolTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) { o.timeout = d }
}

// WithSchemaOverride replaces or patches the derived schema. Used for tools
// with historically inconsistent signatures that must keep their published
// shape.
func WithSchemaOverride(ov SchemaOverride) ToolOption {
	return func(o *toolOptions) { o.override = &ov }
}

// NewTool builds a Descriptor from a typed function. The schema is derived
// from T; arguments are unmarshaled into T before fn runs. Validation against
// the schema happens in the Dispatcher (where it can be disabled), not here.
// Returns an error if schema derivation fails (e.g. unsupported type).
func NewTool[T any, R any](
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (*Descriptor, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	schemaMap, resolved, err := deriveSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("derive schema for %s: %w", name, err)
	}
	if o.override != nil {
		schemaMap, err = applyOverride(schemaMap, *o.override)
		if err != nil {
			return nil, fmt.Errorf("apply schema override for %s: %w", name, err)
		}
		resolved, err = compileRawSchema(schemaMap)
		if err != nil {
			return nil, fmt.Errorf("compile overridden schema for %s: %w", name, err)
		}
	}
	impl := func(ctx context.Context, argsJSON json.RawMessage) (any, error) {
		var args T
		if len(argsJSON) > 0 {
			if err := json.Unmarshal(argsJSON, &args); err != nil {
				return nil, &ValidationError{Tool: name, Reason: "json parse error: " + err.Error(), Err: ErrValidation}
			}
		}
		return fn(ctx, args)
	}
	return &Descriptor{
		Name:        name,
		Description: description,
		Impl:        impl,
		Schema:      schemaMap,
		Mutating:    o.mutating,
		Tags:        o.tags,
		Timeout:     o.timeout,
		resolved:    resolved,
	}, nil
}

// NewRawTool builds a Descriptor from an explicit JSON Schema map and an
// untyped implementation. Useful when the schema comes from outside (e.g. a
// proxied catalog) rather than a Go struct. The provided map is deep-copied
// before compilation so the caller's map is never shared.
func NewRawTool(
	name, description string,
	schemaMap map[string]any,
	impl ToolFunc,
	opts ...ToolOption,
) (*Descriptor, error) {
	if schemaMap == nil {
		return nil, fmt.Errorf("raw tool %s: schema map must not be nil", name)
	}
	if impl == nil {
		return nil, fmt.Errorf("raw tool %s: implementation must not be nil", name)
	}
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	schemaCopy, err := deepCopySchema(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("raw tool %s: copy schema: %w", name, err)
	}
	if o.override != nil {
		schemaCopy, err = applyOverride(schemaCopy, *o.override)
		if err != nil {
			return nil, fmt.Errorf("raw tool %s: apply schema override: %w", name, err)
		}
	}
	stripSchemaIDs(schemaCopy)
	resolved, err := compileRawSchema(schemaCopy)
	if err != nil {
		return nil, fmt.Errorf("raw tool %s: compile schema: %w", name, err)
	}
	return &Descriptor{
		Name:        name,
		Description: description,
		Impl:        impl,
		Schema:      schemaCopy,
		Mutating:    o.mutating,
		Tags:        o.tags,
		Timeout:     o.timeout,
		resolved:    resolved,
	}, nil
}
