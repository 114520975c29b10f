package toolcore

import (
	"strings"
	"sync/atomic"
)

// GatePolicy selects how the WriteGate treats mutating calls.
type GatePolicy string

const (
	// PolicyProtected is the default two-tier policy: calls with no target
	// ref or targeting the protected ref require explicit authorization;
	// calls targeting any other ref are always permitted.
	PolicyProtected GatePolicy = "protected"
	// PolicyAlwaysAllow disables gating entirely. Kept selectable by
	// configuration so the policy can change without code changes.
	PolicyAlwaysAllow GatePolicy = "always_allow"
)

// WriteGate is the process-wide mutation-authorization cell. The allowed flag
// has deliberately weak consistency: a toggle is visible to all subsequently
// dispatched calls, but races with in-flight gated checks are acceptable. The
// gate is advisory; the downstream credential scope is the real enforcement
// point.
type WriteGate struct {
	allowed      atomic.Bool
	protectedRef string
	policy       GatePolicy
}

// NewWriteGate creates a gate protecting protectedRef (e.g. the default
// branch name) under the given policy. allowed is the startup state.
func NewWriteGate(protectedRef string, policy GatePolicy, allowed bool) *WriteGate {
	if policy == "" {
		policy = PolicyProtected
	}
	g := &WriteGate{protectedRef: normalizeRef(protectedRef), policy: policy}
	g.allowed.Store(allowed)
	return g
}

// Allowed reports the current authorization flag.
func (g *WriteGate) Allowed() bool { return g.allowed.Load() }

// ProtectedRef returns the configured protected ref.
func (g *WriteGate) ProtectedRef() string { return g.protectedRef }

// Authorize flips the authorization flag. The toggle is idempotent and has no
// other side effects.
func (g *WriteGate) Authorize(allow bool) { g.allowed.Store(allow) }

// Check evaluates one mutating call. targetRef is the call's heuristically
// extracted target; empty means the blast radius is unknown or global.
// Returns a *GateError naming the tool when the call is denied.
func (g *WriteGate) Check(tool, targetRef string) error {
	if g.policy == PolicyAlwaysAllow || g.allowed.Load() {
		return nil
	}
	target := normalizeRef(targetRef)
	if target == "" {
		return &GateError{Tool: tool, Protected: g.protectedRef}
	}
	if target == g.protectedRef {
		return &GateError{Tool: tool, Target: targetRef, Protected: g.protectedRef}
	}
	// A specific, non-protected target: automation may iterate freely.
	return nil
}

// normalizeRef strips a refs/heads/ style prefix so "refs/heads/main" and
// "main" compare equal.
func normalizeRef(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimPrefix(ref, "refs/heads/")
	return ref
}
