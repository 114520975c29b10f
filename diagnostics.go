package toolcore

import (
	"regexp"
	"sync"
	"time"
)

// RecordKind distinguishes the three diagnostic streams.
type RecordKind string

const (
	RecordEvent RecordKind = "event"
	RecordLog   RecordKind = "log"
	RecordError RecordKind = "error"
)

// DiagnosticRecord is one bounded-buffer entry. Category and Origin are only
// set for error records.
type DiagnosticRecord struct {
	Kind     RecordKind `json:"kind"`
	CallID   string     `json:"call_id,omitempty"`
	Tool     string     `json:"tool,omitempty"`
	Time     time.Time  `json:"time"`
	Status   Status     `json:"status,omitempty"`
	Category Category   `json:"category,omitempty"`
	Origin   Origin     `json:"origin,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// ringBuffer is a fixed-capacity append-only store. capacity <= 0 means
// unbounded. Append is O(1); the oldest record is evicted first and counted
// in dropped.
type ringBuffer struct {
	mu       sync.Mutex
	capacity int
	records  []DiagnosticRecord
	start    int
	count    int
	dropped  uint64
}

func newRingBuffer(capacity int) *ringBuffer {
	b := &ringBuffer{capacity: capacity}
	if capacity > 0 {
		b.records = make([]DiagnosticRecord, capacity)
	}
	return b
}

func (b *ringBuffer) append(rec DiagnosticRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.capacity <= 0 {
		b.records = append(b.records, rec)
		b.count++
		return
	}
	if b.count == b.capacity {
		b.records[b.start] = rec
		b.start = (b.start + 1) % b.capacity
		b.dropped++
		return
	}
	b.records[(b.start+b.count)%b.capacity] = rec
	b.count++
}

// snapshot returns up to limit records without mutating the buffer.
// limit <= 0 means all. newestFirst reverses insertion order.
func (b *ringBuffer) snapshot(limit int, newestFirst bool) []DiagnosticRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]DiagnosticRecord, 0, n)
	if newestFirst {
		for i := 0; i < n; i++ {
			out = append(out, b.at(b.count-1-i))
		}
		return out
	}
	for i := b.count - n; i < b.count; i++ {
		out = append(out, b.at(i))
	}
	return out
}

// at returns the i-th oldest record. Caller holds the lock.
func (b *ringBuffer) at(i int) DiagnosticRecord {
	if b.capacity <= 0 {
		return b.records[i]
	}
	return b.records[(b.start+i)%b.capacity]
}

func (b *ringBuffer) droppedCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Diagnostics holds the three independently-capacitated ring buffers used by
// the introspection tools. All messages are scrubbed of credential-shaped
// substrings before storage; this is a defensive measure, not a security
// boundary.
type Diagnostics struct {
	events *ringBuffer
	logs   *ringBuffer
	errs   *ringBuffer
}

// NewDiagnostics creates buffers with the given capacities. A capacity <= 0
// makes that buffer unbounded; the defaults in the Dispatcher are finite.
func NewDiagnostics(eventCap, logCap, errCap int) *Diagnostics {
	return &Diagnostics{
		events: newRingBuffer(eventCap),
		logs:   newRingBuffer(logCap),
		errs:   newRingBuffer(errCap),
	}
}

// RecordEvent appends a call event.
func (d *Diagnostics) RecordEvent(rec DiagnosticRecord) {
	rec.Kind = RecordEvent
	rec.Message = RedactSecrets(rec.Message)
	d.events.append(rec)
}

// RecordLog appends a log line.
func (d *Diagnostics) RecordLog(rec DiagnosticRecord) {
	rec.Kind = RecordLog
	rec.Message = RedactSecrets(rec.Message)
	d.logs.append(rec)
}

// RecordError appends an error record.
func (d *Diagnostics) RecordError(rec DiagnosticRecord) {
	rec.Kind = RecordError
	rec.Message = RedactSecrets(rec.Message)
	d.errs.append(rec)
}

// Events returns up to limit most recent call events, newest first.
func (d *Diagnostics) Events(limit int) []DiagnosticRecord { return d.events.snapshot(limit, true) }

// Logs returns up to limit most recent log lines, newest first.
func (d *Diagnostics) Logs(limit int) []DiagnosticRecord { return d.logs.snapshot(limit, true) }

// Errors returns up to limit most recent error records, newest first.
func (d *Diagnostics) Errors(limit int) []DiagnosticRecord { return d.errs.snapshot(limit, true) }

// EventsOldestFirst returns up to limit most recent events in insertion
// order.
func (d *Diagnostics) EventsOldestFirst(limit int) []DiagnosticRecord {
	return d.events.snapshot(limit, false)
}

// Dropped reports eviction counts for the event, log, and error buffers.
func (d *Diagnostics) Dropped() (events, logs, errors uint64) {
	return d.events.droppedCount(), d.logs.droppedCount(), d.errs.droppedCount()
}

// secretPatterns match credential-shaped substrings: hosting-platform token
// prefixes, bearer headers, and key=value style secrets.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]+=*`),
	regexp.MustCompile(`(?i)(token|secret|password|api[_-]?key|authorization)["']?\s*[:=]\s*["']?[^\s"',;]+`),
}

const redactedValue = "[REDACTED]"

// RedactSecrets replaces credential-shaped substrings in s. The scrub runs on
// every diagnostic message before storage.
func RedactSecrets(s string) string {
	for _, p := range secretPatterns {
		s = p.ReplaceAllString(s, redactedValue)
	}
	return s
}
