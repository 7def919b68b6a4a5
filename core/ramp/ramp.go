// Package ramp simulates a unit load change from a start power to a target
// power, inserting the threshold pauses and holds required by the pulverizer
// mode. Simulation is deterministic and always returns a valid profile.
package ramp

import (
	"math"
	"time"

	"github.com/kilianp07/loadchange/core/model"
)

const (
	// Step is the simulation clock resolution.
	Step = time.Second
	// MaxSteps bounds a run to one simulated day.
	MaxSteps = 24 * 60 * 60
	// Epsilon is the convergence tolerance on power.
	Epsilon = 1e-9
)

// Profile is the sampled trajectory of one load change.
type Profile struct {
	Start     time.Time
	Target    float64
	Series    model.Series
	Markers   model.Markers
	FinalLoad time.Time
	// Converged is false when the iteration cap stopped the run.
	Converged bool
	Steps     int
}

// Simulate advances power from start towards target beginning at 'at'.
// A pause is a time jump without intermediate samples: the series holds one
// point at the pre-pause instant and one at the post-pause instant with the
// same power.
func Simulate(start, target float64, at time.Time, cfg model.RampConfig) Profile {
	p := Profile{
		Start:   at,
		Target:  target,
		Series:  model.Series{{T: at, Power: start}},
		Markers: model.Markers{},
	}
	if math.Abs(start-target) < Epsilon {
		p.FinalLoad = at
		p.Converged = true
		p.Markers.Set(model.MarkerFinalLoad, at)
		return p
	}

	increasing := target > start
	power := start
	t := at
	pauseApplied := false
	reached429 := false
	holdInserted := false

	for p.Steps < MaxSteps {
		p.Steps++
		rate := cfg.Rate(power)
		var step float64
		if increasing {
			if !reached429 && start < cfg.Threshold429 && power >= cfg.Threshold429 {
				reached429 = true
				p.Markers.Set(model.MarkerReached429, t)
				if !pauseApplied {
					t = p.pause(t, power, cfg.Pause429(true))
					p.Markers.Set(model.MarkerPostPause, t)
					pauseApplied = true
				}
			}
			step = math.Min(rate, target-power)
		} else {
			if !holdInserted && target < cfg.HoldPower && start > cfg.HoldPower && power <= cfg.HoldPower {
				holdInserted = true
				p.Markers.Set(model.MarkerHoldStart, t)
				t = p.pause(t, power, cfg.PauseHold())
				p.Markers.Set(model.MarkerHoldComplete, t)
			}
			if !reached429 && start > cfg.Threshold429 && power <= cfg.Threshold429 {
				reached429 = true
				p.Markers.Set(model.MarkerReached429, t)
				if !pauseApplied {
					t = p.pause(t, power, cfg.Pause429(false))
					p.Markers.Set(model.MarkerPostPause, t)
					pauseApplied = true
				}
			}
			step = math.Min(rate, power-target)
		}
		if step < 0 {
			step = 0
		}
		if increasing {
			power += step
		} else {
			power -= step
		}
		if math.Abs(power-target) < Epsilon {
			power = target
		}

		t = t.Add(Step)
		p.Series = append(p.Series, model.Point{T: t, Power: power})
		if power == target {
			p.Converged = true
			break
		}
	}

	p.FinalLoad = t
	p.Markers.Set(model.MarkerFinalLoad, t)
	return p
}

// pause jumps the clock by d and records the post-pause sample.
func (p *Profile) pause(t time.Time, power float64, d time.Duration) time.Time {
	if d <= 0 {
		return t
	}
	t = t.Add(d)
	p.Series = append(p.Series, model.Point{T: t, Power: power})
	return t
}

// End returns the instant of the last sample.
func (p Profile) End() time.Time {
	if last, ok := p.Series.Last(); ok {
		return last.T
	}
	return p.Start
}

// Window429 returns the pause window opened at the 429 crossing.
func (p Profile) Window429() (model.HoldWindow, bool) {
	return p.window(model.MarkerReached429, model.MarkerPostPause, "Hold @429")
}

// HoldPowerWindow returns the hold inserted at the holding power on a
// decreasing run.
func (p Profile) HoldPowerWindow() (model.HoldWindow, bool) {
	return p.window(model.MarkerHoldStart, model.MarkerHoldComplete, "Hold @hold_power")
}

// HoldWindows returns every pause window of the profile in time order.
func (p Profile) HoldWindows() []model.HoldWindow {
	var out []model.HoldWindow
	w1, ok1 := p.Window429()
	w2, ok2 := p.HoldPowerWindow()
	switch {
	case ok1 && ok2 && w2.Start.Before(w1.Start):
		out = append(out, w2, w1)
	default:
		if ok1 {
			out = append(out, w1)
		}
		if ok2 {
			out = append(out, w2)
		}
	}
	return out
}

func (p Profile) window(from, to model.MarkerKind, label string) (model.HoldWindow, bool) {
	start, ok := p.Markers.Get(from)
	if !ok {
		return model.HoldWindow{}, false
	}
	end, ok := p.Markers.Get(to)
	if !ok {
		return model.HoldWindow{}, false
	}
	level, _ := p.Series.ValueAt(start)
	return model.HoldWindow{Start: start, End: end, Level: level, Label: label}, true
}
