// Package config assembles the server configuration.
// Precedence: built-in defaults, then the YAML file, then CONVERSION_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/Conversion/server/internal/domain/rules"
	"github.com/MRamiBalles/Conversion/server/internal/platform/optimization"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "CONVERSION_"

// Config is everything the server binary needs.
type Config struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	DBPath   string `yaml:"db_path" env:"DB_PATH"` // empty disables the journal
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
	Profile  string `yaml:"profile" env:"PROFILE"` // tuning preset: default, stress, low

	Game   rules.Config        `yaml:"game" envPrefix:"GAME_"`
	Tuning optimization.Config `yaml:"tuning" envPrefix:"TUNING_"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		DBPath:   "conversion.db",
		LogLevel: "info",
		Profile:  "default",
		Game:     rules.DefaultConfig(),
		Tuning:   *optimization.DefaultConfig(),
	}
}

// Load builds a Config. path may be empty; a missing file is an error.
func Load(path string) (*Config, error) {
	var raw []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		raw = b
	}

	cfg := Default()

	// The profile picks the tuning baseline that the file and env then refine.
	profile, err := resolveProfile(raw)
	if err != nil {
		return nil, err
	}
	cfg.Profile = profile
	cfg.Tuning = *optimization.Profile(profile)

	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveProfile(raw []byte) (string, error) {
	probe := struct {
		Profile string `yaml:"profile" env:"PROFILE"`
	}{Profile: "default"}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &probe); err != nil {
			return "", fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.ParseWithOptions(&probe, env.Options{Prefix: EnvPrefix}); err != nil {
		return "", fmt.Errorf("parse env: %w", err)
	}
	return probe.Profile, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr must not be empty")
	}
	switch c.Profile {
	case "default", "stress", "low":
	default:
		return fmt.Errorf("config: unknown profile %q", c.Profile)
	}
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Tuning.RequestQueueBuffer < 0 || c.Tuning.ClientSendBuffer < 1 {
		return errors.New("config: tuning buffers must be positive")
	}
	if c.Tuning.MaxActionsPerSecond <= 0 || c.Tuning.ActionBurst < 1 {
		return errors.New("config: action rate limit must be positive")
	}
	return nil
}
