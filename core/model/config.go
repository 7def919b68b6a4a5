package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PulverizerMode selects the pause table applied at threshold crossings.
type PulverizerMode int

const (
	ThreeStage PulverizerMode = iota
	FourStage
)

// String returns the operator facing label of the mode.
func (m PulverizerMode) String() string {
	switch m {
	case ThreeStage:
		return "3 Puls"
	case FourStage:
		return "4 Puls"
	default:
		return "unknown"
	}
}

// ParsePulverizerMode accepts "3 Puls", "three_stage", "3" and the four stage
// equivalents. Matching is case insensitive.
func ParsePulverizerMode(s string) (PulverizerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3 puls", "3puls", "three_stage", "three-stage", "3":
		return ThreeStage, nil
	case "4 puls", "4puls", "four_stage", "four-stage", "4":
		return FourStage, nil
	default:
		return ThreeStage, fmt.Errorf("unknown pulverizer mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m PulverizerMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PulverizerMode) UnmarshalText(b []byte) error {
	v, err := ParsePulverizerMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// RampConfig governs ramp rates and the pauses inserted at threshold crossings.
type RampConfig struct {
	Threshold429     float64        `json:"threshold_429"`
	HoldPower        float64        `json:"hold_power"`
	FinalLoadMW      float64        `json:"final_load_mw"`
	PauseTime429Min  int            `json:"pause_time_429_min"`
	PauseTimeHoldMin int            `json:"pause_time_hold_min"`
	PulverizerMode   PulverizerMode `json:"pulverizer_mode"`

	// LowRate applies below RateBreakpoint, HighRate at or above it. Both are
	// expressed in MW per second.
	LowRate        float64 `json:"low_rate_mw_per_sec"`
	HighRate       float64 `json:"high_rate_mw_per_sec"`
	RateBreakpoint float64 `json:"rate_breakpoint_mw"`
}

// DefaultRampConfig returns the plant defaults.
func DefaultRampConfig() RampConfig {
	return RampConfig{
		Threshold429:     429,
		HoldPower:        462,
		FinalLoadMW:      560,
		PauseTime429Min:  0,
		PauseTimeHoldMin: 30,
		PulverizerMode:   ThreeStage,
		LowRate:          0.11,
		HighRate:         0.22,
		RateBreakpoint:   330,
	}
}

// SetDefaults fills zero valued thresholds and rates. Pause minutes are left
// untouched since zero is a meaningful value.
func (c *RampConfig) SetDefaults() {
	d := DefaultRampConfig()
	if c.Threshold429 == 0 {
		c.Threshold429 = d.Threshold429
	}
	if c.HoldPower == 0 {
		c.HoldPower = d.HoldPower
	}
	if c.FinalLoadMW == 0 {
		c.FinalLoadMW = d.FinalLoadMW
	}
	if c.LowRate == 0 && c.HighRate == 0 {
		c.LowRate = d.LowRate
		c.HighRate = d.HighRate
	}
	if c.RateBreakpoint == 0 {
		c.RateBreakpoint = d.RateBreakpoint
	}
}

// Validate rejects non-finite thresholds and rates, negative pauses and
// negative rates.
func (c RampConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"threshold_429", c.Threshold429},
		{"hold_power", c.HoldPower},
		{"final_load_mw", c.FinalLoadMW},
		{"low_rate_mw_per_sec", c.LowRate},
		{"high_rate_mw_per_sec", c.HighRate},
		{"rate_breakpoint_mw", c.RateBreakpoint},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be finite", f.name)
		}
	}
	if c.PauseTime429Min < 0 || c.PauseTimeHoldMin < 0 {
		return fmt.Errorf("pause minutes must not be negative")
	}
	if c.LowRate < 0 || c.HighRate < 0 {
		return fmt.Errorf("ramp rates must not be negative")
	}
	if c.PulverizerMode != ThreeStage && c.PulverizerMode != FourStage {
		return fmt.Errorf("unknown pulverizer mode %d", c.PulverizerMode)
	}
	return nil
}

// Pause429 returns the pause applied when the 429 threshold is crossed in the
// given direction.
func (c RampConfig) Pause429(increasing bool) time.Duration {
	if c.PulverizerMode == ThreeStage {
		if increasing {
			return 15 * time.Minute
		}
		return 25 * time.Minute
	}
	if increasing {
		return 0
	}
	return time.Duration(c.PauseTime429Min) * time.Minute
}

// PauseHold returns the hold inserted when a decreasing ramp crosses HoldPower.
func (c RampConfig) PauseHold() time.Duration {
	if c.PulverizerMode == ThreeStage {
		return 15 * time.Minute
	}
	return time.Duration(c.PauseTimeHoldMin) * time.Minute
}

// Rate returns the ramp rate in MW per second at the given power.
func (c RampConfig) Rate(power float64) float64 {
	if power < c.RateBreakpoint {
		return c.LowRate
	}
	return c.HighRate
}
