package toolcore

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML fields written as "60s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the recognized configuration surface, loadable from YAML. Zero
// values fall back to the dispatcher defaults; a diagnostics capacity that is
// explicitly zero selects an unbounded buffer.
type Config struct {
	DedupTTL    Duration `yaml:"dedup_ttl"`
	Diagnostics struct {
		// 0 means unbounded for that buffer; omit a field to keep the
		// finite default.
		Events *int `yaml:"events"`
		Logs   *int `yaml:"logs"`
		Errors *int `yaml:"errors"`
	} `yaml:"diagnostics"`
	OutboundLimit  int      `yaml:"outbound_limit"`
	DefaultTimeout Duration `yaml:"default_timeout"`
	WriteGate      struct {
		Allowed      bool   `yaml:"allowed"`
		ProtectedRef string `yaml:"protected_ref"`
		Policy       string `yaml:"policy"` // "protected" or "always_allow"
	} `yaml:"write_gate"`
	ValidateSchema *bool `yaml:"validate_schema"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.WriteGate.Policy != "" {
		switch GatePolicy(cfg.WriteGate.Policy) {
		case PolicyProtected, PolicyAlwaysAllow:
		default:
			return nil, fmt.Errorf("parse config: unknown write_gate.policy %q", cfg.WriteGate.Policy)
		}
	}
	return &cfg, nil
}

// Options converts the config into dispatcher options. Only explicitly set
// fields produce options, so defaults keep applying underneath.
func (c *Config) Options() []Option {
	var opts []Option
	if c.DedupTTL != 0 {
		opts = append(opts, WithDedupTTL(time.Duration(c.DedupTTL)))
	}
	dg := c.Diagnostics
	if dg.Events != nil || dg.Logs != nil || dg.Errors != nil {
		opts = append(opts, WithDiagnosticsCapacities(
			capOrDefault(dg.Events, 256),
			capOrDefault(dg.Logs, 512),
			capOrDefault(dg.Errors, 128),
		))
	}
	if c.OutboundLimit != 0 {
		opts = append(opts, WithOutboundLimit(c.OutboundLimit))
	}
	if c.DefaultTimeout != 0 {
		opts = append(opts, WithDefaultTimeout(time.Duration(c.DefaultTimeout)))
	}
	if c.WriteGate.ProtectedRef != "" || c.WriteGate.Allowed {
		ref := c.WriteGate.ProtectedRef
		if ref == "" {
			ref = "main"
		}
		opts = append(opts, WithWriteGateDefaults(c.WriteGate.Allowed, ref))
	}
	if c.WriteGate.Policy != "" {
		opts = append(opts, WithGatePolicy(GatePolicy(c.WriteGate.Policy)))
	}
	if c.ValidateSchema != nil {
		opts = append(opts, WithSchemaValidation(*c.ValidateSchema))
	}
	return opts
}

// capOrDefault maps the config convention (field omitted = keep default,
// 0 = unbounded) onto buffer capacities.
func capOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
