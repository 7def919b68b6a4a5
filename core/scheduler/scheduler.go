package scheduler

import (
	"fmt"
	"time"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/ramp"
)

// Decision is the outcome of scheduling one command.
type Decision struct {
	// Accepted is false when the requested start was moved. It is advisory.
	Accepted      bool
	ResolvedStart time.Time
	Message       string
	Window        *model.HoldWindow
}

// Schedule resolves the start of cmd. A requested start inside the previous
// hold window [Start, End] is moved to the window end. Outside the window, or
// without one, the requested start is kept. The direction of the command does
// not matter.
func Schedule(cmd model.Command, prev *model.HoldWindow) Decision {
	req := cmd.RequestedStart
	if prev == nil || !prev.Contains(req) {
		return Decision{Accepted: true, ResolvedStart: req, Window: prev}
	}
	return Decision{
		Accepted:      false,
		ResolvedStart: prev.End,
		Window:        prev,
		Message: fmt.Sprintf("requested start %s falls inside the hold window %s-%s; moved to %s",
			req.Format("15:04:05"), prev.Start.Format("15:04:05"), prev.End.Format("15:04:05"), prev.End.Format("15:04:05")),
	}
}

// PreviousWindow returns the hold window a newly appended command is checked
// against: the last queued command's window, else the last hold_start/hold_end
// pair found in the composed segments. With an empty queue it is the base
// profile's 429 window, falling back to the zero-length window at the base
// final instant. ok is false when none applies.
func PreviousWindow(base *ramp.Profile, queue []model.Command, segments []model.Segment) (model.HoldWindow, bool) {
	if len(queue) > 0 {
		last := queue[len(queue)-1]
		if w, ok := last.HoldWindow(); ok {
			return w, true
		}
		return ScanHoldWindow(segments)
	}
	if base == nil {
		return model.HoldWindow{}, false
	}
	if w, ok := base.Window429(); ok {
		return w, true
	}
	level, _ := base.Series.ValueAt(base.FinalLoad)
	return model.HoldWindow{Start: base.FinalLoad, End: base.FinalLoad, Level: level, Label: "final load"}, true
}

// ScanHoldWindow walks the segments backwards and returns the last complete
// hold_start/hold_end pair.
func ScanHoldWindow(segments []model.Segment) (model.HoldWindow, bool) {
	var end *model.Segment
	for i := len(segments) - 1; i >= 0; i-- {
		sg := segments[i]
		switch {
		case end == nil && sg.Role == model.RoleHoldEnd:
			end = &segments[i]
		case end != nil && sg.Role == model.RoleHoldStart:
			return model.HoldWindow{Start: sg.T, End: end.T, Level: sg.Power, Label: "override hold"}, true
		}
	}
	return model.HoldWindow{}, false
}

// LastEnd returns the instant the most recent command is complete: the last
// command's hold end, else the last composed segment, else the base profile's
// post-pause instant, else its final instant.
func LastEnd(base *ramp.Profile, queue []model.Command, segments []model.Segment) (time.Time, bool) {
	if len(queue) > 0 {
		last := queue[len(queue)-1]
		if !last.HoldEnd.IsZero() {
			return last.HoldEnd, true
		}
		if w, ok := ScanHoldWindow(segments); ok {
			return w.End, true
		}
		if len(segments) > 0 {
			return segments[len(segments)-1].T, true
		}
		if !last.ScheduledStart.IsZero() {
			return last.ScheduledStart, true
		}
		return last.RequestedStart, true
	}
	if base == nil {
		return time.Time{}, false
	}
	if t, ok := base.Markers.Get(model.MarkerPostPause); ok {
		return t, true
	}
	return base.FinalLoad, true
}
