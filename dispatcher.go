package toolcore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dispatcher wraps every registered implementation with the full per-call
// lifecycle: normalize arguments, validate against the schema, check the
// write-gate for mutating calls, coalesce duplicates, execute under the
// outbound concurrency limit, classify the outcome, and record diagnostics
// and metrics exactly once.
//
// Each Dispatcher owns its dedup cache, diagnostics buffers, metrics, and
// write-gate. Collaborators (clock, ID generator, credential probe, observer,
// logger) are injected through Options rather than resolved globally.
type Dispatcher struct {
	registry *Registry
	gate     *WriteGate
	dedup    *DedupCache
	diags    *Diagnostics
	metrics  *Metrics
	advisor  *Advisor
	sem      chan struct{}
	logger   *slog.Logger
	opts     dispatcherOptions

	mu      sync.Mutex
	done    chan struct{}
	running sync.WaitGroup
}

// NewDispatcher creates a Dispatcher over an already-populated registry.
func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	diags := NewDiagnostics(o.eventCap, o.logCap, o.errCap)
	logger := o.logger
	if logger == nil {
		logger = slog.New(NewBufferHandler(diags, slog.LevelInfo))
	}
	var sem chan struct{}
	if o.maxOutbound > 0 {
		sem = make(chan struct{}, o.maxOutbound)
	}
	return &Dispatcher{
		registry: registry,
		gate:     NewWriteGate(o.protectedRef, o.gatePolicy, o.gateAllowed),
		dedup:    NewDedupCache(o.dedupTTL, o.now),
		diags:    diags,
		metrics:  NewMetrics(),
		advisor:  NewAdvisor(o.probe, o.fallbacks),
		sem:      sem,
		logger:   logger,
		opts:     o,
		done:     make(chan struct{}),
	}
}

// Gate returns the dispatcher's write-gate.
func (d *Dispatcher) Gate() *WriteGate { return d.gate }

// Diagnostics returns the dispatcher's ring buffers.
func (d *Dispatcher) Diagnostics() *Diagnostics { return d.diags }

// Metrics returns the dispatcher's metrics registry.
func (d *Dispatcher) Metrics() *Metrics { return d.metrics }

// Dispatch runs one call through the full lifecycle and returns its tagged
// Outcome. The returned error is non-nil only when the call was cancelled:
// cancellation is re-raised unconverted so the transport can distinguish
// "caller gave up" from "the tool failed". All other failures come back
// inside the Outcome as a structured Failure, never as a raw error.
func (d *Dispatcher) Dispatch(ctx context.Context, call ToolCall) (Outcome, error) {
	d.mu.Lock()
	select {
	case <-d.done:
		d.mu.Unlock()
		return Outcome{}, ErrShutdown
	default:
	}
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()

	cc := CallContext{CallID: call.ID, Tool: call.ToolName, Start: d.opts.now()}
	if cc.CallID == "" {
		cc.CallID = d.opts.newID()
	}

	desc, ok := d.registry.Find(call.ToolName)
	if !ok {
		err := &ValidationError{Tool: call.ToolName, Reason: "unknown tool", Err: ErrToolNotFound}
		return d.fail(cc, false, err), nil
	}
	cc.Tool = desc.Name

	args, normalized, err := normalizeArgs(desc, call.Args)
	if err != nil {
		return d.fail(cc, desc.Mutating, err), nil
	}
	cc.Args = args
	cc.TargetRef, cc.TargetPath = extractTarget(args)

	if d.opts.validateSchema && desc.resolved != nil {
		if verr := validateAgainstSchema(desc.Name, desc.resolved, anyMap(args)); verr != nil {
			return d.fail(cc, desc.Mutating, verr), nil
		}
	}

	if desc.Mutating {
		if gerr := d.gate.Check(desc.Name, cc.TargetRef); gerr != nil {
			return d.fail(cc, true, gerr), nil
		}
	}

	d.logger.Info("dispatching", "call_id", cc.CallID, "tool", desc.Name)
	fingerprint := Fingerprint(desc.Name, args)
	result, err := d.dedup.Do(ctx, fingerprint, func(ctx context.Context) (any, error) {
		return d.execute(ctx, desc, normalized)
	})
	dur := d.opts.now().Sub(cc.Start)

	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return d.cancelled(cc, desc, dur), err
	}
	if err != nil {
		return d.fail(cc, desc.Mutating, err), nil
	}

	raw, merr := marshalResult(result)
	if merr != nil {
		return d.fail(cc, desc.Mutating, merr), nil
	}
	d.diags.RecordEvent(DiagnosticRecord{
		CallID: cc.CallID, Tool: desc.Name, Time: d.opts.now(), Status: StatusOK,
	})
	d.metrics.RecordCall(desc.Name, desc.Mutating, false, dur)
	d.opts.observer.ObserveCall(Observation{
		CallID: cc.CallID, Tool: desc.Name, Status: StatusOK,
		Mutating: desc.Mutating, Duration: dur,
	})
	d.logger.Info("dispatched", "call_id", cc.CallID, "tool", desc.Name, "duration", dur)
	return Outcome{
		Status: StatusOK, CallID: cc.CallID, Tool: desc.Name,
		Result: raw, Duration: dur,
	}, nil
}

// execute runs the implementation under the outbound limiter, the effective
// timeout, and panic recovery. It is always invoked inside the dedup cache so
// coalesced callers share one execution.
func (d *Dispatcher) execute(ctx context.Context, desc *Descriptor, args json.RawMessage) (result any, err error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.release()

	timeout := d.opts.defaultTimeout
	if desc.Timeout > 0 {
		timeout = desc.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if d.opts.recoverPanics {
		defer func() {
			if p := recover(); p != nil {
				result, err = nil, &internalError{Err: &panicError{p: p}}
			}
		}()
	}
	return desc.Impl(ctx, args)
}

// fail classifies err, records the failure exactly once, and builds the
// structured Outcome. Cancellation never reaches this path.
func (d *Dispatcher) fail(cc CallContext, mutating bool, err error) Outcome {
	cat, origin := Classify(err)
	steps := d.advisor.Advise(cat, origin, cc.Tool)
	msg := RedactSecrets(err.Error())
	now := d.opts.now()
	dur := now.Sub(cc.Start)
	d.diags.RecordError(DiagnosticRecord{
		CallID: cc.CallID, Tool: cc.Tool, Time: now, Status: StatusError,
		Category: cat, Origin: origin, Message: msg,
	})
	d.diags.RecordEvent(DiagnosticRecord{
		CallID: cc.CallID, Tool: cc.Tool, Time: now, Status: StatusError,
		Category: cat, Message: msg,
	})
	d.metrics.RecordCall(cc.Tool, mutating, true, dur)
	d.opts.observer.ObserveCall(Observation{
		CallID: cc.CallID, Tool: cc.Tool, Status: StatusError,
		Category: cat, Origin: origin, Mutating: mutating, Duration: dur,
	})
	d.logger.Error("dispatch failed",
		"call_id", cc.CallID, "tool", cc.Tool, "category", string(cat), "origin", string(origin), "error", msg)
	return Outcome{
		Status: StatusError, CallID: cc.CallID, Tool: cc.Tool, Duration: dur,
		Failure: &Failure{Category: cat, Origin: origin, Message: msg, Tool: cc.Tool, Remediation: steps},
	}
}

// cancelled records the cancelled event. The classifier is bypassed and the
// errors buffer stays untouched: cancellation is a control signal.
func (d *Dispatcher) cancelled(cc CallContext, desc *Descriptor, dur time.Duration) Outcome {
	d.diags.RecordEvent(DiagnosticRecord{
		CallID: cc.CallID, Tool: desc.Name, Time: d.opts.now(), Status: StatusCancelled,
		Message: "call cancelled by caller",
	})
	d.metrics.RecordCall(desc.Name, desc.Mutating, false, dur)
	d.opts.observer.ObserveCall(Observation{
		CallID: cc.CallID, Tool: desc.Name, Status: StatusCancelled,
		Mutating: desc.Mutating, Duration: dur,
	})
	d.logger.Info("dispatch cancelled", "call_id", cc.CallID, "tool", desc.Name)
	return Outcome{Status: StatusCancelled, CallID: cc.CallID, Tool: desc.Name, Duration: dur}
}

func (d *Dispatcher) acquire(ctx context.Context) error {
	if d.sem == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case d.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) release() {
	if d.sem != nil {
		<-d.sem
	}
}

// Shutdown closes the dispatcher for new calls and waits for in-flight
// executions or ctx to cancel. Idempotent.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	select {
	case <-d.done:
		d.mu.Unlock()
		return nil
	default:
		close(d.done)
	}
	d.mu.Unlock()
	finished := make(chan struct{})
	go func() {
		d.running.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// anyMap widens the concrete map for the schema validator, which expects the
// shape json.Unmarshal produces.
func anyMap(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func marshalResult(v any) (json.RawMessage, error) {
	switch r := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return r, nil
	case []byte:
		return json.RawMessage(r), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &internalError{Err: err}
		}
		return b, nil
	}
}
