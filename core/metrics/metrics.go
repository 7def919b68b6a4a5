package metrics

import (
	"time"

	"github.com/kilianp07/loadchange/core/model"
)

// SummaryEvent is emitted every time the plan energy is recomputed.
type SummaryEvent struct {
	Summary model.EnergySummary
	Mode    model.PulverizerMode
	Frozen  bool
	Time    time.Time
}

// CommandEvent describes an appended command and its scheduling outcome.
type CommandEvent struct {
	ID             string
	StartPower     float64
	TargetPower    float64
	HoldMinutes    int
	RequestedStart time.Time
	ResolvedStart  time.Time
	Accepted       bool
	Anchored       bool
	Time           time.Time
}

// Direction returns "increase" or "decrease".
func (e CommandEvent) Direction() string {
	if e.TargetPower > e.StartPower {
		return "increase"
	}
	return "decrease"
}

// AlarmEvent records a fired alarm.
type AlarmEvent struct {
	Marker    model.MarkerKind
	Text      string
	Delivered bool
	Time      time.Time
}

// Sink records session observations.
type Sink interface {
	RecordSummary(ev SummaryEvent) error
	RecordCommand(ev CommandEvent) error
	RecordAlarm(ev AlarmEvent) error
}

// PowerRecorder is implemented by sinks tracking the live plan power.
type PowerRecorder interface {
	RecordPower(mw float64, at time.Time) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSummary(SummaryEvent) error      { return nil }
func (NopSink) RecordCommand(CommandEvent) error      { return nil }
func (NopSink) RecordAlarm(AlarmEvent) error          { return nil }
func (NopSink) RecordPower(float64, time.Time) error { return nil }
