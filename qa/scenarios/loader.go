package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/model"
)

// EngineDef overrides the ramp configuration of a scenario.
type EngineDef struct {
	Mode             string `yaml:"mode,omitempty"`
	PauseTime429Min  *int   `yaml:"pause_time_429_min,omitempty"`
	PauseTimeHoldMin *int   `yaml:"pause_time_hold_min,omitempty"`
}

// Apply returns cfg with the overrides applied.
func (e EngineDef) Apply(cfg model.RampConfig) (model.RampConfig, error) {
	if e.Mode != "" {
		m, err := model.ParsePulverizerMode(e.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.PulverizerMode = m
	}
	if e.PauseTime429Min != nil {
		cfg.PauseTime429Min = *e.PauseTime429Min
	}
	if e.PauseTimeHoldMin != nil {
		cfg.PauseTimeHoldMin = *e.PauseTimeHoldMin
	}
	return cfg, cfg.Validate()
}

// EnterDef is the base load change.
type EnterDef struct {
	StartMW  float64 `yaml:"start_mw"`
	TargetMW float64 `yaml:"target_mw"`
	At       string  `yaml:"at"`
}

// Step is one operator action at a virtual instant. Action is append, hold,
// log, reset or tick.
type Step struct {
	At          string   `yaml:"at"`
	Action      string   `yaml:"action"`
	TargetMW    float64  `yaml:"target_mw,omitempty"`
	Start       string   `yaml:"start,omitempty"`
	HoldMinutes int      `yaml:"hold_minutes,omitempty"`
	PowerMW     *float64 `yaml:"power_mw,omitempty"`
	Duration    string   `yaml:"duration,omitempty"`
}

// Expected lists the checks run after the last step. Unset fields are not
// checked.
type Expected struct {
	Deferrals    *int     `yaml:"deferrals,omitempty"`
	Commands     *int     `yaml:"commands,omitempty"`
	FinalMW      *float64 `yaml:"final_mw,omitempty"`
	Frozen       *bool    `yaml:"frozen,omitempty"`
	Alarms       []string `yaml:"alarms,omitempty"`
	NotAlarms    []string `yaml:"not_alarms,omitempty"`
	TotalMWh     *float64 `yaml:"total_mwh,omitempty"`
	ToleranceMWh float64  `yaml:"tolerance_mwh,omitempty"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Date        string    `yaml:"date,omitempty"`
	Engine      EngineDef `yaml:"engine,omitempty"`
	Enter       EnterDef  `yaml:"enter"`
	Steps       []Step    `yaml:"steps"`
	// End is the last virtual instant ticked.
	End      string   `yaml:"end,omitempty"`
	Expected Expected `yaml:"expected"`
}

// Load reads a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return &sc, nil
}

// Day returns the scenario calendar day, 2025-01-01 when unset.
func (s Scenario) Day() (time.Time, error) {
	if s.Date == "" {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s.Date, err)
	}
	return d, nil
}

func clockAt(s string, day time.Time) (time.Time, error) {
	return engine.ParseClock(s, day)
}
