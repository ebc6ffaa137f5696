package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"smartmove/internal/scheduling"
)

// rulesEnvPrefix marks environment overrides of scheduling rules, e.g.
// SCHED_BUFFER_MINUTES=20.
const rulesEnvPrefix = "SCHED_"

// CommitConfig controls how approvals are committed.
type CommitConfig struct {
	LockTTLSeconds int `json:"lock_ttl_seconds" yaml:"lock_ttl_seconds"`
	CommitAttempts int `json:"commit_attempts" yaml:"commit_attempts"`
}

// SetDefaults fills unset fields.
func (c *CommitConfig) SetDefaults() {
	if c.LockTTLSeconds == 0 {
		c.LockTTLSeconds = 10
	}
	if c.CommitAttempts == 0 {
		c.CommitAttempts = 3
	}
}

// Validate checks the commit settings.
func (c CommitConfig) Validate() error {
	if c.LockTTLSeconds <= 0 {
		return errors.New("lock_ttl_seconds must be positive")
	}
	if c.CommitAttempts <= 0 {
		return errors.New("commit_attempts must be positive")
	}
	return nil
}

// LockTTL returns the lock lifetime as a duration.
func (c CommitConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Rules is the full set of scheduling options.
type Rules struct {
	Scheduling scheduling.Config
	Commit     CommitConfig
}

// LoadRules reads scheduling rules from an optional YAML or JSON file, then
// applies SCHED_ environment overrides. Missing keys keep their defaults.
// Peak windows can only be set from the file.
func LoadRules(path string) (*Rules, error) {
	k, err := newKoanf(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(rulesEnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, rulesEnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	rules := Rules{Scheduling: scheduling.DefaultConfig()}
	// Decoding into a non-empty slice keeps stale trailing elements.
	rules.Scheduling.PeakWindows = nil
	if err := unmarshal(k, &rules.Scheduling); err != nil {
		return nil, fmt.Errorf("decode scheduling rules: %w", err)
	}
	if !k.Exists("peak_windows") {
		rules.Scheduling.PeakWindows = scheduling.DefaultPeakWindows()
	}
	if err := unmarshal(k, &rules.Commit); err != nil {
		return nil, fmt.Errorf("decode commit rules: %w", err)
	}
	rules.Commit.SetDefaults()

	if err := rules.Scheduling.Validate(); err != nil {
		return nil, err
	}
	if err := rules.Commit.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// newKoanf returns a koanf instance loaded from path. An empty path yields an
// empty instance.
func newKoanf(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if path == "" {
		return k, nil
	}
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return k, nil
}

// unmarshal decodes the whole koanf tree into out using json tags. "HH:MM"
// clock strings, priority names and RFC 3339 timestamps are decoded by hooks.
func unmarshal(k *koanf.Koanf, out any) error {
	return k.UnmarshalWithConf("", out, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToTimeHookFunc(time.RFC3339),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           out,
			WeaklyTypedInput: true,
		},
	})
}
