// Package config loads fritzer settings.
//
// Sources are merged with priority flags > FRITZER_* environment > YAML file >
// defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendKeychain = "keychain"
	BackendNone     = "none"
)

// DefaultURL is the name the box answers to on its own network.
const DefaultURL = "http://fritz.box"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the merged configuration.
type Config struct {
	URL      string         `koanf:"url"`
	Username string         `koanf:"username"`
	Password PasswordConfig `koanf:"password"`
	HTTP     HTTPConfig     `koanf:"http"`
	Store    StoreConfig    `koanf:"store"`
	Log      LogConfig      `koanf:"log"`
}

// PasswordConfig points at the gateway password. Without a file the CLI prompts.
type PasswordConfig struct {
	File string `koanf:"file"`
}

type HTTPConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	// Insecure skips TLS verification for the box's self-signed certificate.
	Insecure bool `koanf:"insecure"`
}

type StoreConfig struct {
	Backend string      `koanf:"backend"`
	Path    string      `koanf:"path"`
	Redis   RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults returns the built-in settings as a koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"url": DefaultURL,
		"http": map[string]any{
			"timeout":  "10s",
			"insecure": false,
		},
		"store": map[string]any{
			"backend": BackendFile,
			"redis": map[string]any{
				"db":  0,
				"ttl": "20m",
			},
		},
		"log": map[string]any{
			"level":  "warn",
			"format": "text",
		},
	}
}

// DefaultPath resolves ~/.config/fritzer/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "fritzer", "config.yaml"), nil
}

// Load merges defaults, the YAML file, the environment and flags, then
// validates the result. An explicit path must exist; the default path is
// optional. Flag keys are dotted, e.g. "store.backend".
func Load(path string, flags map[string]any) (*Config, error) {
	l := NewLoader()
	if err := l.LoadMap(Defaults()); err != nil {
		return nil, err
	}

	if path == "" {
		if p, err := DefaultPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if err := l.LoadFile(path); err != nil {
		return nil, err
	}
	if err := l.LoadEnv(); err != nil {
		return nil, err
	}
	for key, value := range flags {
		if err := l.Set(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := l.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || c.URL == "" {
		return fmt.Errorf("%w: url %q", ErrInvalid, c.URL)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url scheme %q", ErrInvalid, u.Scheme)
	}

	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive", ErrInvalid)
	}

	switch c.Store.Backend {
	case BackendFile, BackendSQLite, BackendKeychain, BackendNone:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: store.redis.addr is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalid, c.Store.Backend)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}
