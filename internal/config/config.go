// Package config loads the client configuration once at startup.
//
// The file is located by, in order: the path passed to Load, the
// WHISPER_CONFIG environment variable, then config.json in the working
// directory. Files ending in .yaml or .yml are parsed as YAML; anything
// else is parsed as JSON with comments and trailing commas allowed.
//
// A missing or invalid configuration is fatal: there is no sensible
// default secret or backend.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "WHISPER_CONFIG"

// DefaultPath is used when neither a path nor EnvVar is set.
const DefaultPath = "config.json"

// SecretLength is the required length of the shared secret in bytes.
const SecretLength = 16

// ErrConfig is the parent of every configuration failure.
var ErrConfig = errors.New("config error")

// Shaper names accepted in Config.Shaper.
const (
	ShaperBuiltin = "builtin"
	ShaperNode    = "node"
	ShaperNone    = "none"
)

// Config is the immutable client configuration.
type Config struct {
	// UserID is shown to other participants.
	UserID string `json:"userId" yaml:"userId"`

	// Backend is the ws:// or wss:// endpoint of the relay.
	Backend string `json:"backend" yaml:"backend"`

	// Secret is the shared 16-byte cipher key.
	Secret string `json:"secret" yaml:"secret"`

	// TimeZone is used to stamp transcript lines.
	// Default: Asia/Tokyo
	TimeZone string `json:"timeZone,omitempty" yaml:"timeZone,omitempty"`

	// ReconnectDelay is the fixed wait between connection attempts.
	// Default: 5s
	ReconnectDelay Duration `json:"reconnectDelay,omitempty" yaml:"reconnectDelay,omitempty"`

	// Shaper selects the Korean text composer: builtin, node or none.
	// Default: builtin
	Shaper string `json:"shaper,omitempty" yaml:"shaper,omitempty"`

	// ComposeScript is the script run by the node shaper.
	// Default: compose_hg.js
	ComposeScript string `json:"composeScript,omitempty" yaml:"composeScript,omitempty"`
}

// Duration accepts either a Go duration string ("5s") or a number of
// seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return d.set(raw)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return d.set(raw)
}

func (d *Duration) set(raw any) error {
	switch v := raw.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}

// Default returns a Config with every optional field filled in.
func Default() *Config {
	return &Config{
		TimeZone:       "Asia/Tokyo",
		ReconnectDelay: Duration(5 * time.Second),
		Shaper:         ShaperBuiltin,
		ComposeScript:  "compose_hg.js",
	}
}

// Load resolves the configuration path and loads it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile loads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrConfig, path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrConfig)
	}

	if c.Backend == "" {
		return fmt.Errorf("%w: backend is required", ErrConfig)
	}
	u, err := url.Parse(c.Backend)
	if err != nil {
		return fmt.Errorf("%w: invalid backend %q: %v", ErrConfig, c.Backend, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: backend must be a ws:// or wss:// URL, got %q", ErrConfig, c.Backend)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: backend %q has no host", ErrConfig, c.Backend)
	}

	if len(c.Secret) != SecretLength {
		return fmt.Errorf("%w: secret must be %d bytes, got %d", ErrConfig, SecretLength, len(c.Secret))
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("%w: invalid timeZone %q: %v", ErrConfig, c.TimeZone, err)
	}

	if c.ReconnectDelay < 0 {
		return fmt.Errorf("%w: reconnectDelay must not be negative", ErrConfig)
	}

	switch c.Shaper {
	case ShaperBuiltin, ShaperNode, ShaperNone:
	default:
		return fmt.Errorf("%w: unknown shaper %q", ErrConfig, c.Shaper)
	}

	return nil
}

// Location returns the parsed time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
