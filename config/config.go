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

	"github.com/kilianp07/loadchange/core/journal"
	"github.com/kilianp07/loadchange/core/metrics"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/infra/monitoring"
	"github.com/kilianp07/loadchange/infra/mqtt"
)

// EnvPrefix marks environment overrides. LC_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "LC_"

type Config struct {
	Engine     model.RampConfig  `json:"engine"`
	Alarms     AlarmsConfig      `json:"alarms"`
	Journal    journal.Config    `json:"journal"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Metrics    metrics.Config    `json:"metrics"`
	Session    SessionConfig     `json:"session"`
	Monitoring monitoring.Config `json:"monitoring"`
	Logging    LoggingConfig     `json:"logging"`
}

// Default returns the plant ramp defaults; the other sections are filled by
// SetDefaults once the sources are merged.
func Default() *Config {
	return &Config{Engine: model.DefaultRampConfig()}
}

// Load reads a YAML or JSON file, applies LC_ environment overrides and
// validates the result. An empty path loads defaults and the environment
// only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	// Keys absent from the sources keep their defaults, including zero
	// valued pause minutes.
	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps LC_ENGINE__HOLD_POWER to engine.hold_power.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Engine.SetDefaults()
	c.Journal.SetDefaults()
	c.MQTT.SetDefaults()
	c.Session.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and names the failing one.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"engine", c.Engine.Validate},
		{"alarms", func() error { _, err := c.Alarms.Resolve(); return err }},
		{"journal", c.Journal.Validate},
		{"metrics", c.Metrics.Validate},
		{"session", c.Session.Validate},
		{"monitoring", c.Monitoring.Validate},
		{"logging", c.Logging.Validate},
	}
	if c.MQTT.Enabled() {
		checks = append(checks, struct {
			name string
			fn   func() error
		}{"mqtt", c.MQTT.Validate})
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}
