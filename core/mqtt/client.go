package mqtt

import (
	"time"

	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/model"
)

// Publisher delivers operator alarms and plan snapshots to the plant bus.
// Notify makes a Publisher usable as an alarm notifier.
type Publisher interface {
	Notify(text string) error
	PublishPlan(msg PlanMessage) error
	Disconnect()
}

// AlarmMessage is the payload published for every fired alarm.
type AlarmMessage struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// PlanMessage is the retained summary of the current plan.
type PlanMessage struct {
	MessageID string               `json:"message_id"`
	Timestamp int64                `json:"timestamp"`
	HasPlan   bool                 `json:"has_plan"`
	Mode      string               `json:"mode,omitempty"`
	StartMW   float64              `json:"start_mw"`
	TargetMW  float64              `json:"target_mw"`
	Frozen    bool                 `json:"frozen"`
	Deferrals int                  `json:"deferrals"`
	Commands  int                  `json:"commands"`
	Summary   model.EnergySummary  `json:"summary"`
	Markers   map[string]time.Time `json:"markers,omitempty"`
	CopyText  []string             `json:"copy_text,omitempty"`
}

// NewPlanMessage summarizes snap. The message ID is left to the publisher.
func NewPlanMessage(snap engine.Snapshot, now time.Time) PlanMessage {
	msg := PlanMessage{
		Timestamp: now.UnixMilli(),
		HasPlan:   snap.HasPlan,
		Frozen:    snap.Frozen,
		Deferrals: snap.Deferrals,
		Commands:  len(snap.Queue),
		Summary:   snap.Summary,
	}
	if !snap.HasPlan {
		return msg
	}
	msg.Mode = snap.Config.PulverizerMode.String()
	msg.StartMW = snap.StartMW
	msg.TargetMW = snap.TargetMW
	msg.Markers = make(map[string]time.Time, len(snap.Markers))
	for _, k := range snap.Markers.Sorted() {
		t, _ := snap.Markers.Get(k)
		msg.Markers[k.String()] = t
	}
	msg.CopyText = snap.Report().CopyText
	return msg
}
