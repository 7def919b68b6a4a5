package engine

import (
	"time"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/scheduler"
)

// EventKind classifies session events.
type EventKind int

const (
	EventEnter EventKind = iota
	EventAppend
	EventFreeze
	EventHold
	EventReset
	EventAlarm
	EventAdvice
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventEnter:
		return "enter"
	case EventAppend:
		return "append"
	case EventFreeze:
		return "freeze"
	case EventHold:
		return "hold"
	case EventReset:
		return "reset"
	case EventAlarm:
		return "alarm"
	case EventAdvice:
		return "advice"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is published on the session bus after every state change and tick.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Summary model.EnergySummary
	Mode    model.PulverizerMode
	Frozen  bool

	Command  *model.Command
	Decision *scheduler.Decision

	Marker    model.MarkerKind
	Text      string
	Delivered bool

	LiveMW float64
}
