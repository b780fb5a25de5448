// Package config layers environment and config-file settings over defaults
// for the engine's listen address and operational knobs (no command-line
// flags are bound to them), the way
// armandParser-gofast-server's config.go layers viper over a Config
// struct. The wire-protocol constants (MAX_MSG, MAX_LOAD_FACTOR, etc.) are
// pinned by spec.md §6 as compile-time constants with "no environment
// variables" and stay as such in their owning packages (internal/wire's
// MaxMsg, internal/hashtable's MaxLoadFactor/RehashingWork, ...); only the
// things an operator would plausibly want to change per deployment live
// here.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the engine's operator-facing settings.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	IdleTimeoutMs int `mapstructure:"idle_timeout_ms"`

	LogLevel string `mapstructure:"log_level"`
}

// Default returns the spec-mandated defaults: dual-stack [::]:1234 and a
// 5-second idle timeout. The 4096-byte frame ceiling is internal/wire.MaxMsg,
// a compile-time constant per spec.md §6 — not an operator-facing setting.
func Default() *Config {
	return &Config{
		Host:          "::",
		Port:          1234,
		IdleTimeoutMs: 5000,
		LogLevel:      "info",
	}
}

// Load layers defaults, an optional "kvengine.yaml" config file (current
// directory, /etc/kvengine/, or $HOME/.kvengine), and KVENGINE_-prefixed
// environment variables, in that order — the same precedence chain
// armandParser-gofast-server's LoadConfig builds with viper.
func Load() (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("kvengine")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/kvengine/")
	v.AddConfigPath("$HOME/.kvengine")

	v.SetEnvPrefix("KVENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("idle_timeout_ms", cfg.IdleTimeoutMs)
	v.SetDefault("log_level", cfg.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.IdleTimeoutMs < 1 {
		return fmt.Errorf("idle_timeout_ms must be positive")
	}
	return nil
}

// Addr formats the listen address for net.Listen.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
