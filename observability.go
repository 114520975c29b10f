package toolcore

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Observation captures one finished dispatch for external observability
// sinks (e.g. the otelbridge package).
type Observation struct {
	CallID   string
	Tool     string
	Status   Status
	Category Category
	Origin   Origin
	Mutating bool
	Duration time.Duration
}

// Observer receives one Observation per dispatched call. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	ObserveCall(obs Observation)
}

type noopObserver struct{}

func (noopObserver) ObserveCall(Observation) {}

// BufferHandler is a slog.Handler that tees log records into the diagnostics
// log ring buffer, so get_recent_logs works without any transport attached.
// Wrap it with slog.New and pass the logger to the Dispatcher via WithLogger,
// or combine with another handler at the call site.
type BufferHandler struct {
	diags *Diagnostics
	level slog.Level
	attrs []slog.Attr
}

// NewBufferHandler creates a handler recording at level and above into diags.
func NewBufferHandler(diags *Diagnostics, level slog.Level) *BufferHandler {
	return &BufferHandler{diags: diags, level: level}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	rec := DiagnosticRecord{Time: r.Time, Message: r.Message}
	var extra strings.Builder
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case "call_id":
			rec.CallID = a.Value.String()
		case "tool":
			rec.Tool = a.Value.String()
		default:
			extra.WriteByte(' ')
			extra.WriteString(a.Key)
			extra.WriteByte('=')
			extra.WriteString(a.Value.String())
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)
	rec.Message += extra.String()
	if r.Level >= slog.LevelError {
		rec.Status = StatusError
	}
	h.diags.RecordLog(rec)
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	out.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &out
}

// WithGroup is accepted but groups are flattened; buffered log lines are for
// humans reading get_recent_logs, not for structured querying.
func (h *BufferHandler) WithGroup(string) slog.Handler { return h }

var _ slog.Handler = (*BufferHandler)(nil)
