package toolcore

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// deriveSchema produces a JSON Schema map and a resolved validator for the
// argument struct T. Derivation is deterministic and idempotent: the same T
// always yields byte-identical MarshalStable output, which is what schema
// republication decisions key on.
func deriveSchema[T any]() (map[string]any, *jsonschema.Resolved, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, nil, err
	}
	if schema == nil {
		return nil, nil, errNilSchema
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, nil, err
	}
	typ := reflect.TypeOf(*new(T))
	enrichSchemaFromStructTags(schemaMap, typ)
	markNullableFields(schemaMap, typ)
	stripSchemaIDs(schemaMap)
	resolved, err := compileRawSchema(schemaMap)
	if err != nil {
		return nil, nil, err
	}
	return schemaMap, resolved, nil
}

var errNilSchema = errors.New("schema reflection returned nil")

// enrichSchemaFromStructTags adds description and enum from struct tags to
// root-level properties. The json tag (first part before comma) matches
// property keys.
func enrichSchemaFromStructTags(schemaMap map[string]any, typ reflect.Type) {
	props, fields := rootPropertyFields(schemaMap, typ)
	for key, prop := range props {
		field, ok := fields[key]
		if !ok {
			continue
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]any, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			prop["enum"] = enum
		}
	}
}

// markNullableFields widens the schema type of pointer fields to accept null
// without discarding the richer branch's structure: {"type":"string"} becomes
// {"type":["string","null"]}, object/array structure stays in place.
func markNullableFields(schemaMap map[string]any, typ reflect.Type) {
	props, fields := rootPropertyFields(schemaMap, typ)
	for key, prop := range props {
		field, ok := fields[key]
		if !ok || field.Type.Kind() != reflect.Pointer {
			continue
		}
		switch t := prop["type"].(type) {
		case string:
			if t != "null" {
				prop["type"] = []any{t, "null"}
			}
		case []any:
			hasNull := false
			for _, v := range t {
				if v == "null" {
					hasNull = true
				}
			}
			if !hasNull {
				prop["type"] = append(t, "null")
			}
		}
	}
}

// rootPropertyFields pairs root-level schema properties with the struct
// fields they were derived from, keyed by json tag name.
func rootPropertyFields(schemaMap map[string]any, typ reflect.Type) (map[string]map[string]any, map[string]reflect.StructField) {
	if schemaMap == nil || typ == nil {
		return nil, nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, nil
	}
	raw, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	props := make(map[string]map[string]any, len(raw))
	for key, val := range raw {
		if prop, ok := val.(map[string]any); ok {
			props[key] = prop
		}
	}
	fields := make(map[string]reflect.StructField)
	for field := range typ.Fields() {
		field := field
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		fields[jsonTag] = field
	}
	return props, fields
}

// walkSchema recursively visits every map node in the schema tree (including
// $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// stripSchemaIDs removes id and $id from schema so resolution does not depend
// on them.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "id")
		delete(n, "$id")
	})
}

// compileRawSchema compiles a raw JSON Schema map into a resolved validator.
// The map is not mutated.
func compileRawSchema(schemaMap map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s.Resolve(nil)
}

// MarshalStable returns canonical bytes for a schema map. encoding/json sorts
// map keys, so equal schemas always produce identical bytes.
func MarshalStable(schemaMap map[string]any) ([]byte, error) {
	return json.Marshal(schemaMap)
}

// SchemaOverride replaces or patches a derived schema for tools with
// historically inconsistent signatures. Overrides are applied in field order:
// Replace discards the derived schema entirely, then PatchProperties merges
// keys into individual properties, then ForceStringArray rewrites properties
// to array-of-string.
type SchemaOverride struct {
	// Replace, when non-nil, substitutes the whole derived schema.
	Replace map[string]any
	// PatchProperties merges the given keys into the named properties
	// (e.g. widen a field's type, add a default).
	PatchProperties map[string]map[string]any
	// ForceStringArray rewrites the named properties to
	// {"type":"array","items":{"type":"string"}}, for fields that were
	// published with untyped containers.
	ForceStringArray []string
}

// applyOverride returns the schema with ov applied. The input map is not
// mutated; callers get a deep copy when any change is made.
func applyOverride(schemaMap map[string]any, ov SchemaOverride) (map[string]any, error) {
	if ov.Replace != nil {
		return deepCopySchema(ov.Replace)
	}
	if len(ov.PatchProperties) == 0 && len(ov.ForceStringArray) == 0 {
		return schemaMap, nil
	}
	out, err := deepCopySchema(schemaMap)
	if err != nil {
		return nil, err
	}
	props, _ := out["properties"].(map[string]any)
	if props == nil {
		props = make(map[string]any)
		out["properties"] = props
	}
	for name, patch := range ov.PatchProperties {
		prop, _ := props[name].(map[string]any)
		if prop == nil {
			prop = make(map[string]any)
			props[name] = prop
		}
		for k, v := range patch {
			prop[k] = v
		}
	}
	for _, name := range ov.ForceStringArray {
		props[name] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	}
	return out, nil
}

func deepCopySchema(schemaMap map[string]any) (map[string]any, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SchemaChanged reports whether a previously published schema needs to be
// republished. It detects not only required fields gaining or losing members
// but also any property whose type or default changed, and properties being
// added or removed.
func SchemaChanged(old, updated map[string]any) bool {
	if !stringSetEqual(requiredSet(old), requiredSet(updated)) {
		return true
	}
	oldProps, _ := old["properties"].(map[string]any)
	newProps, _ := updated["properties"].(map[string]any)
	if len(oldProps) != len(newProps) {
		return true
	}
	for name, ov := range oldProps {
		nv, ok := newProps[name]
		if !ok {
			return true
		}
		op, _ := ov.(map[string]any)
		np, _ := nv.(map[string]any)
		if !reflect.DeepEqual(op["type"], np["type"]) {
			return true
		}
		if !reflect.DeepEqual(op["default"], np["default"]) {
			return true
		}
		if !reflect.DeepEqual(op["items"], np["items"]) {
			return true
		}
	}
	return false
}

func requiredSet(schemaMap map[string]any) map[string]bool {
	out := make(map[string]bool)
	raw, _ := schemaMap["required"].([]any)
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	// A slice of strings also appears when schemas are built in Go directly.
	if ss, ok := schemaMap["required"].([]string); ok {
		for _, s := range ss {
			out[s] = true
		}
	}
	return out
}

func stringSetEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
