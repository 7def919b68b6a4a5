package engine

import (
	"time"

	"github.com/kilianp07/loadchange/core/energy"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/scheduler"
)

// Snapshot is a consistent, independent copy of the session state.
type Snapshot struct {
	HasPlan  bool
	Config   model.RampConfig
	StartMW  float64
	TargetMW float64
	Start    time.Time

	// Main is the base profile and Joined the composed override plan, both
	// cut at the freeze instant when frozen. Series is their gap free weld.
	Main     model.Series
	Joined   model.Series
	Series   model.Series
	Segments []model.Segment
	Queue    []model.Command
	Holds    []model.HoldWindow
	Markers  model.Markers

	Rows      energy.Rows
	Summary   model.EnergySummary
	EnergyErr error

	Anchor    *Anchor
	Frozen    bool
	Cutoff    time.Time
	Deferrals int
	LiveMW    float64
	LiveOK    bool
	Converged bool
}

// Snapshot returns the last fully composed state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Config:    s.cfg,
		Summary:   s.summary,
		EnergyErr: s.energyErr,
		Deferrals: s.deferrals,
		LiveMW:    s.live,
		LiveOK:    s.liveOK,
		Cutoff:    s.cutoff,
		Frozen:    !s.cutoff.IsZero(),
		Markers:   s.markers.Clone(),
	}
	if s.base == nil {
		return snap
	}
	snap.HasPlan = true
	snap.StartMW = s.enter.StartMW
	snap.TargetMW = s.enter.TargetMW
	snap.Start = s.enter.At
	snap.Converged = s.base.Converged
	snap.Main = s.main.Clone()
	snap.Joined = s.joined.Clone()
	snap.Series = s.welded.Clone()
	snap.Segments = append([]model.Segment(nil), s.plan.Segments...)
	snap.Queue = append([]model.Command(nil), s.queue...)
	snap.Holds = s.holdWindows()
	snap.Rows = append(energy.Rows(nil), s.rows...)
	if s.anchor != nil {
		a := *s.anchor
		snap.Anchor = &a
	}
	return snap
}

// LastEnd returns when the latest command, or the base plan, completes.
func (s Snapshot) LastEnd() (time.Time, bool) {
	if !s.HasPlan {
		return time.Time{}, false
	}
	if t, ok := scheduler.LastEnd(nil, s.Queue, s.Segments); ok {
		return t, true
	}
	if t, ok := s.Markers.Get(model.MarkerPostPause); ok {
		return t, true
	}
	return s.Markers.Get(model.MarkerFinalLoad)
}
