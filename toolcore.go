package toolcore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolFunc is the implementation contract for a registered tool. It receives
// normalized (and, when validation is enabled, schema-checked) JSON arguments
// and returns a JSON-serializable value or an error. Long-running
// implementations must honor ctx cancellation.
type ToolFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Descriptor describes one registered tool: its implementation, its derived
// (or overridden) JSON Schema, and its classification flags. Descriptors are
// created once at registration and never deleted; per-call state lives in
// CallContext, not here.
type Descriptor struct {
	Name        string
	Description string
	Impl        ToolFunc
	// Schema is a JSON Schema map ({type: object, properties, required}).
	Schema map[string]any
	// Mutating marks tools whose execution is expected to cause an externally
	// visible side effect. Mutating calls pass through the WriteGate.
	Mutating bool
	Tags     []string
	// Timeout overrides the dispatcher default execution timeout when > 0.
	Timeout time.Duration

	resolved *jsonschema.Resolved
}

// ToolCall is a single invocation request as produced by the transport layer.
// ID may be left empty; the Dispatcher then generates a call ID.
type ToolCall struct {
	ID       string
	ToolName string
	Args     json.RawMessage
}

// Status tags the three possible outcomes of a dispatched call.
type Status string

const (
	StatusOK        Status = "ok"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Outcome is the tagged result of one dispatched call. Exactly one of Result
// (StatusOK) and Failure (StatusError) is set; StatusCancelled carries
// neither, and Dispatch additionally returns the cancellation error so the
// transport can re-raise it.
type Outcome struct {
	Status   Status          `json:"status"`
	CallID   string          `json:"call_id"`
	Tool     string          `json:"tool"`
	Result   json.RawMessage `json:"result,omitempty"`
	Failure  *Failure        `json:"failure,omitempty"`
	Duration time.Duration   `json:"-"`
}

// Failure is the user-visible shape of a classified error.
type Failure struct {
	Category    Category          `json:"category"`
	Origin      Origin            `json:"origin"`
	Message     string            `json:"message"`
	Tool        string            `json:"tool"`
	Remediation []RemediationStep `json:"remediation_steps"`
}

// CallContext is the ephemeral per-invocation record owned by the Dispatcher
// for the lifetime of one call. It is discarded after diagnostics are
// recorded.
type CallContext struct {
	CallID     string
	Tool       string
	Args       map[string]any
	TargetRef  string
	TargetPath string
	Start      time.Time
}

// CredentialProbe reports whether a usable upstream credential is present.
// It is the only coupling between the core and the remote-API client; the
// Advisor uses it to decide between "configure a credential" and
// "use the local fallback" remediation steps.
type CredentialProbe interface {
	HasCredential() bool
}
