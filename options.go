package toolcore

import (
	"log/slog"
	"time"
)

// Option configures a Dispatcher.
type Option func(*dispatcherOptions)

type dispatcherOptions struct {
	validateSchema bool
	dedupTTL       time.Duration
	maxOutbound    int
	eventCap       int
	logCap         int
	errCap         int
	gateAllowed    bool
	protectedRef   string
	gatePolicy     GatePolicy
	defaultTimeout time.Duration
	recoverPanics  bool
	logger         *slog.Logger
	observer       Observer
	probe          CredentialProbe
	fallbacks      map[string]string
	now            func() time.Time
	newID          func() string
}

func defaultOptions() dispatcherOptions {
	return dispatcherOptions{
		validateSchema: true,
		dedupTTL:       60 * time.Second,
		maxOutbound:    8,
		eventCap:       256,
		logCap:         512,
		errCap:         128,
		protectedRef:   "main",
		gatePolicy:     PolicyProtected,
		defaultTimeout: 30 * time.Second,
		recoverPanics:  true,
		observer:       noopObserver{},
	}
}

// WithSchemaValidation enables or disables schema validation before
// execution. Validation is advisory in some deployments whose tools validate
// more precisely themselves; disabling it never skips normalization or
// gating.
func WithSchemaValidation(enabled bool) Option {
	return func(o *dispatcherOptions) { o.validateSchema = enabled }
}

// WithDedupTTL sets how long successful results absorb repeated calls with
// the same fingerprint. Zero or negative coalesces only in-flight calls.
func WithDedupTTL(ttl time.Duration) Option {
	return func(o *dispatcherOptions) { o.dedupTTL = ttl }
}

// WithOutboundLimit caps simultaneous executions regardless of how many
// logical calls are in flight. Pass 0 or negative to disable the limiter.
func WithOutboundLimit(n int) Option {
	return func(o *dispatcherOptions) { o.maxOutbound = n }
}

// WithDiagnosticsCapacities sets the event, log, and error buffer
// capacities. A capacity <= 0 makes that buffer unbounded; use sparingly.
func WithDiagnosticsCapacities(events, logs, errors int) Option {
	return func(o *dispatcherOptions) {
		o.eventCap, o.logCap, o.errCap = events, logs, errors
	}
}

// WithWriteGateDefaults sets the gate's startup state and the protected ref
// (e.g. the default branch name).
func WithWriteGateDefaults(allowed bool, protectedRef string) Option {
	return func(o *dispatcherOptions) {
		o.gateAllowed = allowed
		o.protectedRef = protectedRef
	}
}

// WithGatePolicy selects the write-gate policy.
func WithGatePolicy(policy GatePolicy) Option {
	return func(o *dispatcherOptions) { o.gatePolicy = policy }
}

// WithDefaultTimeout sets the default per-call execution timeout. Individual
// tools override it via WithToolTimeout; 0 disables the default.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *dispatcherOptions) { o.defaultTimeout = d }
}

// WithRecoverPanics controls panic recovery during execution. Recovered
// panics surface as unknown-category failures.
func WithRecoverPanics(enabled bool) Option {
	return func(o *dispatcherOptions) { o.recoverPanics = enabled }
}

// WithLogger sets the structured logger. When unset, the Dispatcher logs into
// its own diagnostics log buffer via BufferHandler.
func WithLogger(logger *slog.Logger) Option {
	return func(o *dispatcherOptions) { o.logger = logger }
}

// WithObserver attaches an observability sink receiving one Observation per
// call (see the otelbridge package).
func WithObserver(obs Observer) Option {
	return func(o *dispatcherOptions) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithCredentialProbe injects the upstream credential presence check used by
// the remediation advisor.
func WithCredentialProbe(probe CredentialProbe) Option {
	return func(o *dispatcherOptions) { o.probe = probe }
}

// WithFallbackTools maps remote tools to local-workspace fallback tools used
// in remediation advice (e.g. a blocked remote commit suggesting the local
// commit operation).
func WithFallbackTools(fallbacks map[string]string) Option {
	return func(o *dispatcherOptions) { o.fallbacks = fallbacks }
}

// WithClock injects the time source. Tests use a fake clock; nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(o *dispatcherOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator injects the call-ID generator. The default produces UUIDs;
// generated IDs must be unique for the process lifetime.
func WithIDGenerator(newID func() string) Option {
	return func(o *dispatcherOptions) {
		if newID != nil {
			o.newID = newID
		}
	}
}
