package toolcore

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ToolSummary is the catalog row returned by ListTools.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Mutating    bool   `json:"mutating"`
	// Permitted reports whether a call with unknown blast radius would pass
	// the gate right now. Recomputed on every listing; descriptors are not
	// replaced when the gate flips.
	Permitted bool     `json:"permitted"`
	Tags      []string `json:"tags,omitempty"`
	// Properties maps each argument name to its schema type and Required
	// lists the mandatory arguments: the catalog-level schema summary.
	// DescribeTool returns the full schema.
	Properties map[string]string `json:"properties,omitempty"`
	Required   []string          `json:"required,omitempty"`
}

// ValidationReport is the result of ValidateArgs.
type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ListTools returns a name-sorted summary of every registered tool.
func (d *Dispatcher) ListTools() []ToolSummary {
	descs := d.registry.List()
	out := make([]ToolSummary, 0, len(descs))
	for _, desc := range descs {
		props, required := summarizeSchema(desc.Schema)
		out = append(out, ToolSummary{
			Name:        desc.Name,
			Description: desc.Description,
			Mutating:    desc.Mutating,
			Permitted:   !desc.Mutating || d.gate.Check(desc.Name, "") == nil,
			Tags:        desc.Tags,
			Properties:  props,
			Required:    required,
		})
	}
	return out
}

// summarizeSchema flattens a schema into the catalog view: property name to
// type, plus the sorted required set.
func summarizeSchema(schema map[string]any) (map[string]string, []string) {
	raw, _ := schema["properties"].(map[string]any)
	var props map[string]string
	if len(raw) > 0 {
		props = make(map[string]string, len(raw))
		for name, val := range raw {
			prop, _ := val.(map[string]any)
			props[name] = propertyType(prop)
		}
	}
	var required []string
	for name := range requiredSet(schema) {
		required = append(required, name)
	}
	slices.Sort(required)
	return props, required
}

// propertyType renders a property's type for the summary; a widened type list
// such as ["integer","null"] becomes "integer|null".
func propertyType(prop map[string]any) string {
	switch t := prop["type"].(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "|")
		}
	}
	return "any"
}

// DescribeTool returns the full JSON Schema of one tool, resolving name
// variants the same way Dispatch does.
func (d *Dispatcher) DescribeTool(name string) (map[string]any, error) {
	desc, ok := d.registry.Find(name)
	if !ok {
		return nil, fmt.Errorf("describe %s: %w", name, ErrToolNotFound)
	}
	return desc.Schema, nil
}

// ValidateArgs checks args against a tool's schema without dispatching. The
// same normalization as Dispatch is applied first, so a report of valid means
// an identical Dispatch would pass validation.
func (d *Dispatcher) ValidateArgs(name string, args json.RawMessage) (ValidationReport, error) {
	desc, ok := d.registry.Find(name)
	if !ok {
		return ValidationReport{}, fmt.Errorf("validate %s: %w", name, ErrToolNotFound)
	}
	normalized, _, err := normalizeArgs(desc, args)
	if err != nil {
		return ValidationReport{Errors: []string{err.Error()}}, nil
	}
	if desc.resolved == nil {
		return ValidationReport{Valid: true}, nil
	}
	if verr := validateAgainstSchema(desc.Name, desc.resolved, anyMap(normalized)); verr != nil {
		return ValidationReport{Errors: []string{verr.Error()}}, nil
	}
	return ValidationReport{Valid: true}, nil
}

// RecentEvents returns up to limit most recent call events, newest first.
func (d *Dispatcher) RecentEvents(limit int) []DiagnosticRecord {
	return d.diags.Events(limit)
}

// RecentErrors returns up to limit most recent classified failures, newest
// first.
func (d *Dispatcher) RecentErrors(limit int) []DiagnosticRecord {
	return d.diags.Errors(limit)
}

// RecentLogs returns up to limit most recent captured log lines, newest
// first.
func (d *Dispatcher) RecentLogs(limit int) []DiagnosticRecord {
	return d.diags.Logs(limit)
}

// AuthorizeMutations flips the write-gate flag. The toggle is idempotent;
// visibility follows the gate's documented weak-consistency contract.
func (d *Dispatcher) AuthorizeMutations(allow bool) {
	d.gate.Authorize(allow)
	d.logger.Info("write gate toggled", "allowed", allow)
}

// MetricsSnapshot returns an immutable copy of all counters.
func (d *Dispatcher) MetricsSnapshot() MetricsSnapshot {
	return d.metrics.Snapshot()
}
