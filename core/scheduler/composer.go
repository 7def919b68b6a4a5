package scheduler

import (
	"time"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/ramp"
)

// Plan is the joined series composed from the command queue.
type Plan struct {
	Segments []model.Segment
	// Profiles holds the simulated ramp of each command, in queue order.
	Profiles []ramp.Profile
	// Windows holds the ramp pauses and hold of every command, clipped to the
	// part of the command that survives the cut by later commands.
	Windows []model.HoldWindow
}

// Series returns the plan without role tags.
func (p Plan) Series() model.Series { return model.SeriesFromSegments(p.Segments) }

// Compose rebuilds the joined plan from scratch. Each command is simulated
// from its scheduled start with its own hold minutes; a command with a hold
// gets two extra segments tagged hold_start and hold_end. A command starting
// before the end of the segments composed so far cuts them at its start, so
// the joined series stays time ordered. The resolved HoldStart and HoldEnd are
// written back into queue. A command cut by a later one keeps only the hold
// windows before that cut.
func Compose(queue []model.Command, cfg model.RampConfig) Plan {
	var plan Plan
	starts := make([]time.Time, len(queue))
	for i := range queue {
		cmd := &queue[i]
		start := cmd.ScheduledStart
		if start.IsZero() {
			start = cmd.RequestedStart
		}
		starts[i] = start
		c := cfg
		c.PauseTimeHoldMin = cmd.HoldMinutes
		prof := ramp.Simulate(cmd.StartPower, cmd.TargetPower, start, c)
		plan.Profiles = append(plan.Profiles, prof)

		plan.Segments = cutAt(plan.Segments, start)
		for _, pt := range prof.Series {
			plan.Segments = append(plan.Segments, model.Segment{Point: pt, Role: model.RoleRamp})
		}
		rampEnd := prof.End()
		cmd.HoldStart = rampEnd
		cmd.HoldEnd = time.Time{}
		if cmd.HoldMinutes > 0 {
			cmd.HoldEnd = rampEnd.Add(time.Duration(cmd.HoldMinutes) * time.Minute)
			plan.Segments = append(plan.Segments,
				model.Segment{Point: model.Point{T: cmd.HoldStart, Power: cmd.TargetPower}, Role: model.RoleHoldStart},
				model.Segment{Point: model.Point{T: cmd.HoldEnd, Power: cmd.TargetPower}, Role: model.RoleHoldEnd},
			)
		}
	}
	for i, prof := range plan.Profiles {
		ws := prof.HoldWindows()
		if w, ok := queue[i].HoldWindow(); ok {
			ws = append(ws, w)
		}
		plan.Windows = append(plan.Windows, model.ClipWindows(ws, earliest(starts[i+1:]))...)
	}
	return plan
}

// earliest returns the first instant of ts, zero when ts is empty.
func earliest(ts []time.Time) time.Time {
	var first time.Time
	for _, t := range ts {
		if first.IsZero() || t.Before(first) {
			first = t
		}
	}
	return first
}

// cutAt drops the segments after t. A segment exactly at t is dropped too since
// the next command restates that instant.
func cutAt(segs []model.Segment, t time.Time) []model.Segment {
	n := len(segs)
	for n > 0 && !segs[n-1].T.Before(t) {
		n--
	}
	return segs[:n]
}
