package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/pkg/export"
)

func printReport(w io.Writer, snap engine.Snapshot) {
	if !snap.HasPlan {
		fmt.Fprintln(w, "no plan entered")
		return
	}
	r := snap.Report()
	for _, l := range r.Lines {
		fmt.Fprintln(w, l.String())
	}
	for _, t := range r.CopyText {
		fmt.Fprintf(w, "> %s\n", t)
	}
	if snap.EnergyErr != nil {
		fmt.Fprintf(w, "energy unavailable: %v\n", snap.EnergyErr)
		return
	}
	s := r.Summary
	fmt.Fprintf(w, "energy: origin %.3f MWh, override %.3f MWh, total %.3f MWh (ramp %.3f, hold %.3f)\n",
		s.OriginMWh, s.OverrideMWh, s.TotalMWh, s.RampMWh, s.HoldMWh)
}

func printStatus(w io.Writer, snap engine.Snapshot) {
	if !snap.HasPlan {
		fmt.Fprintln(w, "no plan entered")
		return
	}
	live := "-"
	if snap.LiveOK {
		live = engine.FormatMW(snap.LiveMW) + " MW"
	}
	fmt.Fprintf(w, "%s -> %s MW (%s), live %s, commands %d, deferrals %d, frozen %t\n",
		engine.FormatMW(snap.StartMW), engine.FormatMW(snap.TargetMW), snap.Config.PulverizerMode,
		live, len(snap.Queue), snap.Deferrals, snap.Frozen)
}

// writePlan exports the integrated rows of snap to w.
func writePlan(w io.Writer, f export.Format, snap engine.Snapshot) error {
	switch f {
	case export.FormatCSV:
		return export.WriteCSV(w, snap.Rows)
	case export.FormatJSON:
		return export.WriteJSON(w, snap.Rows)
	case export.FormatHTML:
		title := engine.CopyText(snap.StartMW, snap.TargetMW)
		return export.WriteChart(w, export.Chart{Title: title, Rows: snap.Rows, Summary: snap.Summary})
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// exportPlan writes snap to path, picking the format from format or, when
// empty, from the file extension.
func exportPlan(path, format string, snap engine.Snapshot) error {
	if format == "" {
		format = path
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writePlan(out, f, snap); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
