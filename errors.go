package toolcore

import (
	"errors"
	"fmt"
)

// Category is the primary failure axis: what kind of thing went wrong.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryAuthorization Category = "authorization"
	CategoryTimeout       Category = "timeout"
	CategoryUpstream      Category = "upstream"
	CategoryUnknown       Category = "unknown"
)

// Origin is the secondary failure axis: whether the failure happened before
// the call reached this system's logic (on the remote platform) or inside it.
type Origin string

const (
	OriginExternal Origin = "external_platform"
	OriginInternal Origin = "internal"
)

// Sentinel errors. Use errors.Is to check.
var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrValidation    = errors.New("validation failed")
	ErrShutdown      = errors.New("dispatcher is shutting down")
)

// ValidationError reports bad or missing arguments. The message is intended
// to be sent back to the caller for self-correction, so it must not leak
// internals.
type ValidationError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// Unwrap supports errors.Is/errors.As on wrapped chains.
func (e *ValidationError) Unwrap() error { return e.Err }

// GateError reports a write-gate denial. Target is empty when the call's
// blast radius was unknown.
type GateError struct {
	Tool      string
	Target    string
	Protected string
}

func (e *GateError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("mutation %s denied: no target ref and mutations are not authorized", e.Tool)
	}
	return fmt.Sprintf("mutation %s on protected ref %q denied: mutations are not authorized", e.Tool, e.Target)
}

// UpstreamError reports a failure from an external collaborator (the remote
// code-hosting API, a subprocess, the filesystem). Service names the upstream
// dependency bucket for metrics.
type UpstreamError struct {
	Service     string
	StatusCode  int
	Message     string
	RateLimited bool
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// internalError wraps failures of the core's own logic (panics, marshaling).
// The underlying error is kept for diagnostics but the transport only sees
// the generic message.
type internalError struct {
	Err error
}

func (e *internalError) Error() string {
	return "internal error during tool execution"
}

func (e *internalError) Unwrap() error { return e.Err }

// panicError wraps a recovered panic value for internalError.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
