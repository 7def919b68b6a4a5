package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/loadchange/core/model"
)

// FormatMW prints a power without trailing zeros.
func FormatMW(mw float64) string {
	return strconv.FormatFloat(mw, 'f', -1, 64)
}

// CopyText is the instruction an operator copies into the shift log.
func CopyText(start, target float64) string {
	if start > target {
		return fmt.Sprintf("Decrease Unit load to %s MW", FormatMW(target))
	}
	return fmt.Sprintf("Increase Unit load to %s MW", FormatMW(target))
}

// HoldText is the manual hold instruction.
func HoldText(level float64) string {
	return fmt.Sprintf("Hold the load at %s MW", FormatMW(level))
}

// ReportLine is one labelled result.
type ReportLine struct {
	Marker model.MarkerKind
	Label  string
	At     time.Time
}

// String renders "label: HH:MM".
func (l ReportLine) String() string {
	return fmt.Sprintf("%s: %s", l.Label, l.At.Format("15:04"))
}

// Report is the operator facing result of a snapshot.
type Report struct {
	Lines    []ReportLine
	CopyText []string
	Summary  model.EnergySummary
}

// Report renders the marker results in time order and the copy text of the
// base plan followed by every queued command.
func (s Snapshot) Report() Report {
	var r Report
	if !s.HasPlan {
		return r
	}
	for _, k := range s.Markers.Sorted() {
		t, _ := s.Markers.Get(k)
		r.Lines = append(r.Lines, ReportLine{Marker: k, Label: s.label(k), At: t})
	}
	r.CopyText = append(r.CopyText, CopyText(s.StartMW, s.TargetMW))
	for _, c := range s.Queue {
		r.CopyText = append(r.CopyText, CopyText(c.StartPower, c.TargetPower))
	}
	r.Summary = s.Summary
	return r
}

func (s Snapshot) label(k model.MarkerKind) string {
	switch k {
	case model.MarkerReached429:
		return fmt.Sprintf("Reached %s MW", FormatMW(s.Config.Threshold429))
	case model.MarkerPostPause:
		return fmt.Sprintf("Hold at %s MW complete", FormatMW(s.Config.Threshold429))
	case model.MarkerHoldStart:
		return fmt.Sprintf("Reached %s MW", FormatMW(s.Config.HoldPower))
	case model.MarkerHoldComplete:
		return fmt.Sprintf("Hold at %s MW complete (%d min)", FormatMW(s.Config.HoldPower), int(s.Config.PauseHold()/time.Minute))
	case model.MarkerFinalLoad:
		return "Total load time"
	case model.MarkerOverrideComplete:
		return "Override complete"
	case model.MarkerFreeze:
		return "Frozen at"
	default:
		return k.String()
	}
}
