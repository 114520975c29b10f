package toolcore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DedupCache coalesces concurrent calls sharing a logical fingerprint into a
// single execution. Entries are published before the work completes so racing
// callers attach to the in-flight computation; successful results are kept
// for a TTL to absorb near-simultaneous repeats; failures and cancellations
// are evicted immediately (no negative caching).
//
// A cache must be owned by exactly one Dispatcher. Entries are not safe to
// share across independent dispatcher instances, so the cache is scoped per
// dispatcher rather than process-wide.
type DedupCache struct {
	mu      sync.Mutex
	entries map[string]*dedupEntry
	ttl     time.Duration
	now     func() time.Time
}

type dedupEntry struct {
	done      chan struct{}
	result    any
	err       error
	cancelled bool
	expiresAt time.Time // zero until settled successfully
}

// NewDedupCache creates a cache whose successful entries live for ttl after
// completion. ttl <= 0 coalesces only in-flight calls and caches nothing.
// now is injectable for tests; nil means time.Now.
func NewDedupCache(ttl time.Duration, now func() time.Time) *DedupCache {
	if now == nil {
		now = time.Now
	}
	return &DedupCache{
		entries: make(map[string]*dedupEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Do runs work once per live fingerprint and fans the result out to every
// concurrent caller. Semantics:
//
//   - A live entry (in-flight, or settled successfully within TTL) is
//     attached to; work does not run again.
//   - A failed entry is evicted before the error is returned, so the very
//     next call with the same fingerprint retries from scratch.
//   - When the original caller is cancelled, the entry is evicted, the
//     cancellation propagates to that caller unconverted, and attached
//     callers restart work themselves rather than inherit a cancellation
//     they did not request.
//   - An attached caller whose own ctx is cancelled detaches with ctx.Err()
//     and leaves the entry in place.
func (c *DedupCache) Do(ctx context.Context, fingerprint string, work func(context.Context) (any, error)) (any, error) {
	for {
		c.mu.Lock()
		e, live := c.entries[fingerprint]
		if live && c.expiredLocked(e) {
			delete(c.entries, fingerprint)
			live = false
		}
		if live {
			c.mu.Unlock()
			select {
			case <-e.done:
				if e.cancelled {
					continue // owner bailed; this caller restarts the work
				}
				return e.result, e.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		e = &dedupEntry{done: make(chan struct{})}
		c.entries[fingerprint] = e
		c.mu.Unlock()

		result, err := work(ctx)

		c.mu.Lock()
		switch {
		case err != nil && ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			// The owner's cancellation must not poison attached callers.
			e.cancelled = true
			delete(c.entries, fingerprint)
		case err != nil:
			e.err = err
			delete(c.entries, fingerprint)
		default:
			e.result = result
			if c.ttl > 0 {
				e.expiresAt = c.now().Add(c.ttl)
				time.AfterFunc(c.ttl, func() { c.evict(fingerprint, e) })
			} else {
				delete(c.entries, fingerprint)
			}
		}
		c.mu.Unlock()
		close(e.done)
		return result, err
	}
}

// Forget drops the entry for fingerprint if present, regardless of state.
func (c *DedupCache) Forget(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// Len reports the number of live entries (including in-flight ones).
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DedupCache) expiredLocked(e *dedupEntry) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

// evict removes the entry only if it is still the same computation; a newer
// entry under the same fingerprint must not be dropped by a stale timer.
func (c *DedupCache) evict(fingerprint string, e *dedupEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[fingerprint] == e {
		delete(c.entries, fingerprint)
	}
}

// Fingerprint derives the dedup key from a tool name and its normalized
// arguments: a SHA-256 over a stable (sorted-key) rendering of the argument
// map, prefixed with the tool name.
func Fingerprint(tool string, args map[string]any) string {
	data, err := json.Marshal(toStableValue(args))
	if err != nil {
		// Non-serializable arguments cannot collide with serializable ones.
		data = []byte(fmt.Sprintf("%v", args))
	}
	sum := sha256.Sum256(data)
	return tool + ":" + hex.EncodeToString(sum[:])
}

// toStableValue converts a value to a deterministic representation for
// hashing: maps become sorted key-value pair lists, slices convert
// recursively, primitives pass through.
func toStableValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]any, 0, len(val)*2)
		for _, k := range keys {
			pairs = append(pairs, k, toStableValue(val[k]))
		}
		return pairs
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toStableValue(item)
		}
		return out
	default:
		return val
	}
}
