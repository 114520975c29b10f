package toolcore

import (
	"context"
	"errors"
)

// schemaValidator validates a JSON-like value (e.g. map[string]any from
// json.Unmarshal). *jsonschema.Resolved implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema checks normalized arguments against a compiled
// schema. Failures come back as *ValidationError wrapping ErrValidation so
// the caller can fail fast before any side effect.
func validateAgainstSchema(tool string, validator schemaValidator, v any) error {
	if err := validator.Validate(v); err != nil {
		return &ValidationError{Tool: tool, Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// isDeadlineError reports whether err stems from a deadline, either the
// stdlib sentinel or a net-style Timeout() carrier.
func isDeadlineError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}
