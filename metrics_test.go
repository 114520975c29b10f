package toolcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordCall(t *testing.T) {
	m := NewMetrics()
	m.RecordCall("get_file", false, false, 120*time.Millisecond)
	m.RecordCall("get_file", false, true, 80*time.Millisecond)
	m.RecordCall("merge_pr", true, false, 300*time.Millisecond)

	snap := m.Snapshot()
	require.Contains(t, snap.Tools, "get_file")
	gf := snap.Tools["get_file"]
	assert.Equal(t, uint64(2), gf.CallsTotal)
	assert.Equal(t, uint64(1), gf.ErrorsTotal)
	assert.Equal(t, uint64(0), gf.MutatingCallsTotal)
	assert.Equal(t, int64(200), gf.LatencySumMS)

	mp := snap.Tools["merge_pr"]
	assert.Equal(t, uint64(1), mp.CallsTotal)
	assert.Equal(t, uint64(1), mp.MutatingCallsTotal)
	assert.Equal(t, uint64(0), mp.ErrorsTotal)
}

func TestMetrics_RecordUpstream(t *testing.T) {
	m := NewMetrics()
	m.RecordUpstream("hosting", nil)
	m.RecordUpstream("hosting", &UpstreamError{Service: "hosting", StatusCode: 429, Message: "rate limit", RateLimited: true})
	m.RecordUpstream("hosting", context.DeadlineExceeded)
	m.RecordUpstream("ci", errors.New("connection reset"))

	snap := m.Snapshot()
	h := snap.Upstreams["hosting"]
	assert.Equal(t, uint64(3), h.RequestsTotal)
	assert.Equal(t, uint64(2), h.ErrorsTotal)
	assert.Equal(t, uint64(1), h.RateLimitedTotal)
	assert.Equal(t, uint64(1), h.TimeoutsTotal)

	c := snap.Upstreams["ci"]
	assert.Equal(t, uint64(1), c.RequestsTotal)
	assert.Equal(t, uint64(1), c.ErrorsTotal)
	assert.Equal(t, uint64(0), c.RateLimitedTotal)
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewMetrics()
	m.RecordCall("echo", false, false, time.Millisecond)
	snap := m.Snapshot()
	m.RecordCall("echo", false, false, time.Millisecond)
	assert.Equal(t, uint64(1), snap.Tools["echo"].CallsTotal)
	assert.Equal(t, uint64(2), m.Snapshot().Tools["echo"].CallsTotal)
}
