package model

import "time"

// Command is an operator override appended to the plan queue. The resolved
// fields are populated by scheduling and plan composition.
type Command struct {
	ID             string    `json:"id"`
	StartPower     float64   `json:"start_mw"`
	TargetPower    float64   `json:"target_mw"`
	RequestedStart time.Time `json:"requested_start"`
	HoldMinutes    int       `json:"hold_minutes"`

	ScheduledStart time.Time `json:"scheduled_start"`
	HoldStart      time.Time `json:"hold_start"`
	HoldEnd        time.Time `json:"hold_end"`
	// Anchored is set when the start was forced by a freeze and the
	// scheduling check was bypassed.
	Anchored bool `json:"anchored"`
}

// Increasing reports the ramp direction of the command.
func (c Command) Increasing() bool { return c.TargetPower > c.StartPower }

// HoldWindow returns the resolved hold interval. ok is false until the plan
// has been composed or when the command carries no hold.
func (c Command) HoldWindow() (HoldWindow, bool) {
	if c.HoldStart.IsZero() || c.HoldEnd.IsZero() {
		return HoldWindow{}, false
	}
	return HoldWindow{Start: c.HoldStart, End: c.HoldEnd, Level: c.TargetPower, Label: "override hold"}, true
}

// HoldWindow is an interval of constant power.
type HoldWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Level float64   `json:"level"`
	Label string    `json:"label,omitempty"`
}

// Contains reports whether t lies within the closed interval [Start, End].
func (w HoldWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Duration returns End - Start.
func (w HoldWindow) Duration() time.Duration { return w.End.Sub(w.Start) }

// ClipWindows limits ws to instants before limit: windows starting at or after
// limit are dropped, the others end at limit at the latest. A zero limit
// returns ws unchanged.
func ClipWindows(ws []HoldWindow, limit time.Time) []HoldWindow {
	if limit.IsZero() {
		return ws
	}
	out := make([]HoldWindow, 0, len(ws))
	for _, w := range ws {
		if !w.Start.Before(limit) {
			continue
		}
		if w.End.After(limit) {
			w.End = limit
		}
		out = append(out, w)
	}
	return out
}
