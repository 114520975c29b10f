// Package testutil provides test helpers for toolcore (fake probe, scripted
// tools, a pre-configured dispatcher).
package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/AdaptivMCP/toolcore"
)

// Probe is a configurable CredentialProbe for tests.
type Probe struct {
	Present bool
}

// HasCredential reports the configured state.
func (p *Probe) HasCredential() bool { return p.Present }

// CountingTool builds a read-only tool returning value and counting how many
// times the implementation actually ran, for dedup assertions.
type CountingTool struct {
	calls atomic.Int64
}

// Calls returns how many times the implementation ran.
func (c *CountingTool) Calls() int64 { return c.calls.Load() }

// Descriptor returns a registered-shape descriptor named name. Each
// invocation increments the counter and returns value.
func (c *CountingTool) Descriptor(name string, value any) (*toolcore.Descriptor, error) {
	return toolcore.NewRawTool(name, "counting test tool",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			c.calls.Add(1)
			return value, nil
		},
	)
}

// NewTestDispatcher returns a Dispatcher with generous timeouts, a
// deterministic ID sequence, and finite small buffers, suitable for tests.
func NewTestDispatcher(reg *toolcore.Registry, opts ...toolcore.Option) *toolcore.Dispatcher {
	var seq atomic.Int64
	base := []toolcore.Option{
		toolcore.WithDefaultTimeout(30 * time.Second),
		toolcore.WithIDGenerator(func() string {
			return "call-" + strconv.FormatInt(seq.Add(1), 10)
		}),
	}
	return toolcore.NewDispatcher(reg, append(base, opts...)...)
}
