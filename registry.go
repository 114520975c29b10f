package toolcore

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry is the append-only table of registered tools. Registration happens
// once at startup; at call time the registry is read-only. Descriptors are
// never replaced or deleted.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Descriptor
	canonical map[string][]string // canonical form -> registered names
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*Descriptor),
		canonical: make(map[string][]string),
	}
}

// Register appends a descriptor. Tool names are unique for the process
// lifetime; registering a name twice returns ErrDuplicateTool.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("register: descriptor must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("register %s: %w", d.Name, ErrDuplicateTool)
	}
	r.tools[d.Name] = d
	canon := canonicalToolName(d.Name)
	r.canonical[canon] = append(r.canonical[canon], d.Name)
	return nil
}

// Find resolves a tool accepting common client-side name variants: hyphens vs
// underscores, leading slashes, dotted or module-qualified names, and case
// differences. Matching is layered: exact, then case-insensitive, then
// canonicalized. A canonicalized match that could mean more than one
// registered tool is ambiguous and reported as not found rather than guessed.
func (r *Registry) Find(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range nameVariants(name) {
		if d, ok := r.tools[candidate]; ok {
			return d, true
		}
	}
	for _, candidate := range nameVariants(name) {
		lower := strings.ToLower(candidate)
		var match *Descriptor
		for registered, d := range r.tools {
			if strings.ToLower(registered) == lower {
				if match != nil {
					return nil, false // ambiguous
				}
				match = d
			}
		}
		if match != nil {
			return match, true
		}
	}
	canon := canonicalToolName(name)
	names := r.canonical[canon]
	if len(names) != 1 {
		return nil, false
	}
	d, ok := r.tools[names[0]]
	return d, ok
}

// List returns a stable, name-sorted snapshot of all descriptors.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	out := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// nameVariants expands a client-supplied name into the literal forms to try
// before canonical matching: as-is, without a leading slash, and the last
// segment of a dotted qualifier.
func nameVariants(name string) []string {
	variants := []string{name}
	trimmed := strings.TrimPrefix(name, "/")
	if trimmed != name {
		variants = append(variants, trimmed)
	}
	if idx := strings.LastIndexByte(trimmed, '.'); idx >= 0 && idx < len(trimmed)-1 {
		variants = append(variants, trimmed[idx+1:])
	}
	return variants
}

// canonicalToolName strips separators and camelCase boundaries down to a
// lowercase identifier: "Create-Branch", "create_branch" and "createBranch"
// all canonicalize to "createbranch".
func canonicalToolName(name string) string {
	name = strings.TrimPrefix(name, "/")
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 && idx < len(name)-1 {
		name = name[idx+1:]
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '-', '_', '/', '.', ' ':
			continue
		}
		b.WriteRune(r)
	}
	// Full-Unicode folding, so canonical matching agrees with the
	// case-insensitive layer in Find.
	return strings.ToLower(b.String())
}
