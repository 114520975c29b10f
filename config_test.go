package toolcore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
dedup_ttl: 2m
diagnostics:
  events: 64
  logs: 0
outbound_limit: 4
default_timeout: 45s
write_gate:
  allowed: true
  protected_ref: refs/heads/main
  policy: protected
validate_schema: false
`))
	require.NoError(t, err)
	assert.Equal(t, Duration(2*time.Minute), cfg.DedupTTL)
	require.NotNil(t, cfg.Diagnostics.Events)
	assert.Equal(t, 64, *cfg.Diagnostics.Events)
	require.NotNil(t, cfg.Diagnostics.Logs)
	assert.Equal(t, 0, *cfg.Diagnostics.Logs)
	assert.Nil(t, cfg.Diagnostics.Errors)
	assert.Equal(t, 4, cfg.OutboundLimit)
	assert.Equal(t, Duration(45*time.Second), cfg.DefaultTimeout)
	assert.True(t, cfg.WriteGate.Allowed)
	assert.Equal(t, "refs/heads/main", cfg.WriteGate.ProtectedRef)
	require.NotNil(t, cfg.ValidateSchema)
	assert.False(t, *cfg.ValidateSchema)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, cfg.Options(), "an empty config must not override any default")
}

func TestParseConfig_BadDuration(t *testing.T) {
	_, err := ParseConfig([]byte("dedup_ttl: sixty\n"))
	require.Error(t, err)
}

func TestParseConfig_UnknownPolicy(t *testing.T) {
	_, err := ParseConfig([]byte("write_gate:\n  policy: ask_nicely\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask_nicely")
}

func TestConfig_Options(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
dedup_ttl: 90s
write_gate:
  protected_ref: trunk
  policy: always_allow
`))
	require.NoError(t, err)
	opts := cfg.Options()
	require.NotEmpty(t, opts)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	assert.Equal(t, 90*time.Second, o.dedupTTL)
	assert.Equal(t, "trunk", o.protectedRef)
	assert.Equal(t, PolicyAlwaysAllow, o.gatePolicy)
	// Untouched fields keep their defaults.
	assert.Equal(t, 8, o.maxOutbound)
	assert.True(t, o.validateSchema)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outbound_limit: 2\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.OutboundLimit)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
