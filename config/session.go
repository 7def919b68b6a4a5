package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/loadchange/core/model"
)

// SessionConfig drives the live session loop.
type SessionConfig struct {
	// Unit names the generating unit in logs and published messages.
	Unit string `json:"unit"`
	// TickInterval is the alarm polling period.
	TickInterval time.Duration `json:"tick_interval"`
	// ResampleStepMinutes is the energy resolution. Zero selects one minute,
	// a negative value integrates the raw samples.
	ResampleStepMinutes int `json:"resample_step_minutes"`
}

// SetDefaults applies a one second tick.
func (c *SessionConfig) SetDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

// Validate rejects sub-millisecond ticks.
func (c SessionConfig) Validate() error {
	if c.TickInterval < time.Millisecond {
		return fmt.Errorf("tick_interval %s is too short", c.TickInterval)
	}
	return nil
}

// ResampleStep converts ResampleStepMinutes to the session option.
func (c SessionConfig) ResampleStep() time.Duration {
	switch {
	case c.ResampleStepMinutes < 0:
		return -1
	case c.ResampleStepMinutes == 0:
		return 0
	default:
		return time.Duration(c.ResampleStepMinutes) * time.Minute
	}
}

// AlarmsConfig overrides alarm texts keyed by marker name, for example
// "429_reached" or "final_load".
type AlarmsConfig struct {
	Messages map[string]string `json:"messages"`
}

// Resolve maps the configured texts to marker kinds. Unknown names are an
// error.
func (c AlarmsConfig) Resolve() (map[model.MarkerKind]string, error) {
	out := make(map[model.MarkerKind]string, len(c.Messages))
	for name, text := range c.Messages {
		k, ok := model.ParseMarkerKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown alarm %q", name)
		}
		out[k] = text
	}
	return out, nil
}
