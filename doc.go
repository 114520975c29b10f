// Package toolcore is the invocation core of a tool-calling server: it
// registers named operations ("tools"), validates and normalizes each call's
// arguments, enforces a mutation-authorization policy, coalesces concurrent
// duplicate calls, classifies failures into an actionable taxonomy, and keeps
// bounded in-memory diagnostics.
//
// # Overview
//
// A transport adapter feeds ToolCall values into a Dispatcher. The Dispatcher
// resolves the tool in the Registry, normalizes and validates arguments
// against the tool's derived JSON Schema, checks the WriteGate for mutating
// calls, coalesces duplicate concurrent calls through its dedup cache, runs
// the implementation under an outbound concurrency limit, and returns a
// tagged Outcome (ok, error, or cancelled). Failures come back as a
// structured Failure with a category, an origin, and ordered remediation
// steps; cancellation is re-raised as a plain error so the transport can tell
// "caller gave up" from "the tool failed".
//
// # Key concepts
//
//   - Single Source of Truth: the argument struct passed to NewTool drives
//     both the schema published to clients and the validation of incoming
//     JSON. Historically inconsistent tools patch the derived schema through
//     a SchemaOverride instead of forking the deriver.
//   - No negative caching: the dedup cache only retains successful results;
//     a failed or cancelled call is evicted immediately so the next call with
//     the same fingerprint starts fresh.
//   - Advisory gate: the WriteGate is a policy, not a security boundary. The
//     real enforcement point is the downstream credential scope.
//
// # Example
//
//	type Args struct { Value int `json:"value"` }
//	echo, err := toolcore.NewTool("echo", "Echo a value", func(_ context.Context, a Args) (int, error) {
//	    return a.Value, nil
//	})
//	if err != nil { ... }
//	reg := toolcore.NewRegistry()
//	if err := reg.Register(echo); err != nil { ... }
//	d := toolcore.NewDispatcher(reg)
//	out, err := d.Dispatch(ctx, toolcore.ToolCall{ToolName: "echo", Args: []byte(`{"value": 7}`)})
package toolcore
