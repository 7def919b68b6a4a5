package metrics

import (
	"fmt"

	"github.com/kilianp07/loadchange/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks" koanf:"sinks"`
	// PrometheusPort exposes /metrics when not empty.
	PrometheusPort string `json:"prometheus_port" yaml:"prometheus_port" koanf:"prometheus_port"`
}

// Validate rejects sinks without a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	return nil
}
