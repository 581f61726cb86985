// Package config loads service configuration: hardcoded defaults, overridden
// by an optional YAML file, overridden by IDEAFEED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "IDEAFEED_"

// Duration wraps time.Duration so "24h" style values unmarshal from YAML
// and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Addr      string     `koanf:"addr"`
	DBPath    string     `koanf:"db_path"`
	AvatarDir string     `koanf:"avatar_dir"`
	Auth      AuthConfig `koanf:"auth"`
	Log       LogConfig  `koanf:"log"`
}

type AuthConfig struct {
	Secret   string   `koanf:"secret"`
	TokenTTL Duration `koanf:"token_ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Default() *Config {
	return &Config{
		Addr:      ":8080",
		DBPath:    "./data/ideafeed.db",
		AvatarDir: "./data/avatars",
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration. An empty path skips the file layer; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// IDEAFEED_ADDR -> addr, IDEAFEED_AUTH_SECRET -> auth.secret,
	// IDEAFEED_DB_PATH -> db_path. Only the auth/log groups nest; other
	// underscores are part of the key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		for _, group := range []string{"auth", "log"} {
			if strings.HasPrefix(s, group+"_") {
				return group + "." + strings.TrimPrefix(s, group+"_")
			}
		}
		return s
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required (set IDEAFEED_AUTH_SECRET)")
	}
	if c.Auth.TokenTTL.Duration() <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be 'json' or 'console', got %q", c.Log.Format)
	}
	return nil
}
