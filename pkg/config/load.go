package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "FIELDLINE_"

// Load reads configuration from the given YAML file (which may be absent),
// then overlays FIELDLINE_* environment overrides. A double underscore in an
// env name descends one level: FIELDLINE_PROVIDER__API_KEY sets
// provider.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKeyMapper turns FIELDLINE_PROVIDER__API_KEY into provider.api_key.
func envKeyMapper(name string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(trimmed, "__", ".")
}
