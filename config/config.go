// Package config holds the process-wide request defaults and loads
// overrides for them from a YAML file and HOPPER_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Version is reported in the default User-Agent.
const Version = "1.0.0"

// EnvPrefix marks environment variables that override defaults.
const EnvPrefix = "HOPPER_"

// DefaultRedirectBudget is used when redirects are enabled without an
// explicit count.
const DefaultRedirectBudget = 10

// Defaults are the settings applied to a request that does not override
// them.
type Defaults struct {
	Follow      int           `koanf:"follow" validate:"gte=0"`
	Timeout     time.Duration `koanf:"timeout" validate:"gte=0"`
	Decode      bool          `koanf:"decode"`
	Parse       bool          `koanf:"parse"`
	StrictParse bool          `koanf:"strict_parse"`
	Compressed  bool          `koanf:"compressed"`
	Accept      string        `koanf:"accept" validate:"required"`
	UserAgent   string        `koanf:"user_agent" validate:"required"`
	Proxy       string        `koanf:"proxy" validate:"omitempty,url"`
}

// UserAgent returns the default User-Agent header value.
func UserAgent() string {
	return fmt.Sprintf("hopper/%s (%s; %s %s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Default returns the built-in defaults: no redirects, a 10s inactivity
// timeout, decoding and parsing enabled, Accept */*.
func Default() Defaults {
	return Defaults{
		Follow:    0,
		Timeout:   10 * time.Second,
		Decode:    true,
		Parse:     true,
		Accept:    "*/*",
		UserAgent: UserAgent(),
	}
}

// Load layers the YAML file at path (skipped when empty or missing) and
// HOPPER_ environment variables over [Default], then validates the result.
func Load(path string) (Defaults, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Defaults{}, fmt.Errorf("loading config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Defaults{}, fmt.Errorf("loading environment: %w", err)
	}

	def := Default()
	for key, val := range map[string]any{
		"follow":       def.Follow,
		"timeout":      def.Timeout,
		"decode":       def.Decode,
		"parse":        def.Parse,
		"strict_parse": def.StrictParse,
		"compressed":   def.Compressed,
		"accept":       def.Accept,
		"user_agent":   def.UserAgent,
	} {
		if !k.Exists(key) {
			if err := k.Set(key, val); err != nil {
				return Defaults{}, fmt.Errorf("setting default %s: %w", key, err)
			}
		}
	}

	var cfg Defaults
	if err := k.Unmarshal("", &cfg); err != nil {
		return Defaults{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Defaults{}, err
	}

	return cfg, nil
}
