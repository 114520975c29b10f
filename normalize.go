package toolcore

import (
	"encoding/json"
	"strings"
)

// normalizeArgs applies tolerant aliasing before validation, strictly for
// ergonomics: client-side key spelling variants are renamed to the schema's
// property names, and a compound "owner/repo" identifier is split when the
// schema expects the two discrete fields. Normalization only renames and
// splits; it never widens what schema validation subsequently accepts.
func normalizeArgs(d *Descriptor, raw json.RawMessage) (map[string]any, json.RawMessage, error) {
	args := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, nil, &ValidationError{Tool: d.Name, Reason: "json parse error: " + err.Error(), Err: ErrValidation}
		}
	}
	props, _ := d.Schema["properties"].(map[string]any)
	if len(props) == 0 {
		return args, marshalArgs(args, raw), nil
	}

	canonicalProps := make(map[string]string, len(props))
	for name := range props {
		canonicalProps[canonicalToolName(name)] = name
	}
	for key, val := range args {
		if _, ok := props[key]; ok {
			continue
		}
		want, ok := canonicalProps[canonicalToolName(key)]
		if !ok {
			continue
		}
		if _, taken := args[want]; taken {
			continue
		}
		args[want] = val
		delete(args, key)
	}

	// Compound identifier: "owner/repo" in the repo field when the schema
	// asks for both halves separately.
	_, wantsOwner := props["owner"]
	_, wantsRepo := props["repo"]
	if wantsOwner && wantsRepo {
		if repo, ok := args["repo"].(string); ok {
			if _, hasOwner := args["owner"]; !hasOwner {
				if owner, rest, found := strings.Cut(repo, "/"); found && owner != "" && rest != "" {
					args["owner"] = owner
					args["repo"] = rest
				}
			}
		}
	}
	return args, marshalArgs(args, raw), nil
}

// marshalArgs re-renders the normalized map; on the (unreachable in practice)
// marshal failure the original raw payload is passed through unchanged.
func marshalArgs(args map[string]any, raw json.RawMessage) json.RawMessage {
	data, err := json.Marshal(args)
	if err != nil {
		return raw
	}
	return data
}

// targetRefKeys are checked in order when heuristically extracting the ref a
// call will touch. The first present, non-empty string wins.
var targetRefKeys = []string{"target_ref", "ref", "branch", "branch_name", "base_branch", "base"}

var targetPathKeys = []string{"target_path", "path", "file_path"}

// extractTarget pulls the call's target ref and path out of normalized
// arguments. Both are best-effort; empty means unknown.
func extractTarget(args map[string]any) (ref, path string) {
	for _, key := range targetRefKeys {
		if v, ok := args[key].(string); ok && v != "" {
			ref = v
			break
		}
	}
	for _, key := range targetPathKeys {
		if v, ok := args[key].(string); ok && v != "" {
			path = v
			break
		}
	}
	return ref, path
}
