package toolcore

import (
	"context"
	"errors"
	"strings"
)

// Classify converts an execution error into its (category, origin) pair.
// Cancellation is a control signal, not an error: callers must check for
// context.Canceled before classifying, never after.
func Classify(err error) (Category, Origin) {
	var (
		ve *ValidationError
		ge *GateError
		ue *UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return CategoryValidation, OriginInternal
	case errors.As(err, &ge):
		return CategoryAuthorization, OriginInternal
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout, originFromMessage(err)
	case errors.As(err, &ue):
		return CategoryUpstream, OriginExternal
	default:
		return CategoryUnknown, originFromMessage(err)
	}
}

// externalMarkers are message fragments that suggest the failure happened on
// the remote platform before it reached this system's logic. The transport
// cannot report origin directly, so this is a best-effort heuristic.
var externalMarkers = []string{
	"rate limit",
	"forbidden",
	"unauthorized",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
	"upstream",
	"api error",
	"status 4",
	"status 5",
	"http 4",
	"http 5",
}

func originFromMessage(err error) Origin {
	if err == nil {
		return OriginInternal
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range externalMarkers {
		if strings.Contains(msg, marker) {
			return OriginExternal
		}
	}
	return OriginInternal
}

// RemediationKind is a machine-readable label for a remediation step.
type RemediationKind string

const (
	RemediationFixArguments  RemediationKind = "fix_arguments"
	RemediationAuthorize     RemediationKind = "authorize_mutations"
	RemediationRetry         RemediationKind = "retry"
	RemediationLongerTimeout RemediationKind = "increase_timeout"
	RemediationCredential    RemediationKind = "configure_credential"
	RemediationAlternateTool RemediationKind = "use_alternate_tool"
	RemediationInspect       RemediationKind = "inspect_diagnostics"
)

// RemediationStep is one actionable suggestion attached to a Failure.
type RemediationStep struct {
	Kind RemediationKind `json:"kind"`
	// Action is the human-readable instruction.
	Action string `json:"action"`
	// AlternateTool suggests a registered fallback tool, when one exists
	// (e.g. a local-workspace operation replacing a blocked remote mutation).
	AlternateTool string `json:"alternate_tool,omitempty"`
}

// Advisor turns a classified failure into an ordered list of remediation
// steps. It is deliberately concrete: steps name the exact follow-up call
// rather than generic advice.
type Advisor struct {
	probe     CredentialProbe
	fallbacks map[string]string // remote tool name -> local fallback tool name
}

// NewAdvisor creates an Advisor. probe may be nil (credential state unknown);
// fallbacks maps remote-mutation tools to their local-workspace equivalents.
func NewAdvisor(probe CredentialProbe, fallbacks map[string]string) *Advisor {
	return &Advisor{probe: probe, fallbacks: fallbacks}
}

// Advise returns remediation steps for a failure of the given category and
// origin raised by tool. The slice order is the suggested order of attempts.
func (a *Advisor) Advise(cat Category, origin Origin, tool string) []RemediationStep {
	var steps []RemediationStep
	switch cat {
	case CategoryValidation:
		steps = append(steps, RemediationStep{
			Kind:   RemediationFixArguments,
			Action: "call describe_tool(" + tool + ") and correct the arguments to match the schema",
		})
	case CategoryAuthorization:
		steps = append(steps, RemediationStep{
			Kind:   RemediationAuthorize,
			Action: "call authorize_mutations(true) and retry, or target a non-protected ref",
		})
		if alt, ok := a.fallbacks[tool]; ok {
			steps = append(steps, RemediationStep{
				Kind:          RemediationAlternateTool,
				Action:        "apply the change in the local workspace instead of the remote platform",
				AlternateTool: alt,
			})
		}
	case CategoryTimeout:
		steps = append(steps, RemediationStep{
			Kind:   RemediationLongerTimeout,
			Action: "retry with a longer timeout",
		})
	case CategoryUpstream:
		if origin == OriginExternal && a.probe != nil && !a.probe.HasCredential() {
			steps = append(steps, RemediationStep{
				Kind:   RemediationCredential,
				Action: "no upstream credential is configured; set one before retrying",
			})
		}
		if alt, ok := a.fallbacks[tool]; ok {
			steps = append(steps, RemediationStep{
				Kind:          RemediationAlternateTool,
				Action:        "the remote platform rejected the call; use the local-workspace fallback",
				AlternateTool: alt,
			})
		}
		steps = append(steps, RemediationStep{
			Kind:   RemediationRetry,
			Action: "retry after a short delay; upstream failures are often transient",
		})
	default:
		steps = append(steps, RemediationStep{
			Kind:   RemediationInspect,
			Action: "call get_recent_errors to inspect the failure, then retry once",
		})
	}
	return steps
}
