// Package config loads the service configuration from a JSON or YAML file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/parkcast/parkcast/infra/ingest"
)

// Config is the root configuration of the service.
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	HTTP      HTTPConfig      `json:"http"`
	Forecast  ForecastConfig  `json:"forecast"`
	Providers ProvidersConfig `json:"providers"`
	Ingest    ingest.Config   `json:"ingest"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// Load reads the configuration file at path. Environment variables
// prefixed with PC_ override file values, with __ as the nesting
// separator (PC_DATABASE__DSN overrides database.dsn).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("PC_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "pc_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Forecast.SetDefaults()
	cfg.Providers.SetDefaults()
	cfg.Ingest.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Database.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Forecast.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
