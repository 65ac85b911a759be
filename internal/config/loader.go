package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. FRITZER_STORE_BACKEND.
const EnvPrefix = "FRITZER_"

// Loader merges configuration sources. Later loads override earlier ones.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
}

// NewLoader returns an empty loader.
func NewLoader() *Loader {
	return &Loader{
		k:         koanf.New("."),
		envPrefix: EnvPrefix,
	}
}

// LoadMap merges a nested map.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges FRITZER_* variables: FRITZER_STORE_REDIS_ADDR sets store.redis.addr.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// Set overrides a single dotted key.
func (l *Loader) Set(key string, value any) error {
	if err := l.k.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Unmarshal decodes the merged configuration using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a merged value.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}
