// Package energy integrates the welded load plan into MWh with the
// trapezoidal rule and splits the result by source and by hold flag.
package energy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/timeline"
)

// DefaultStep is the resample resolution used by the session.
const DefaultStep = time.Minute

var (
	// ErrInvalidStep is returned by Resample for a non positive step.
	ErrInvalidStep = errors.New("energy: resample step must be positive")
	// ErrInvalidRow flags a NaN or infinite power sample.
	ErrInvalidRow = errors.New("energy: invalid power sample")
)

// Row is one integrated sample.
type Row struct {
	T      time.Time    `json:"t"`
	Power  float64      `json:"mw"`
	Source model.Source `json:"source"`
	IsHold bool         `json:"is_hold"`
}

// Rows is an integration input, ordered by source then time.
type Rows []Row

// Input describes the plan to integrate. When Joined is not empty the main
// series is trimmed at the joined start; otherwise a non zero Cutoff trims it.
type Input struct {
	Main   model.Series
	Joined model.Series
	Cutoff time.Time
}

// BuildRows lays out the welded plan: main rows up to the seam, then joined
// rows from the seam onwards. The seam point on the main side takes the main
// power at that instant.
func BuildRows(in Input) Rows {
	main := in.Main
	joined := in.Joined
	if first, ok := joined.First(); ok {
		if v, ok := in.Main.ValueAt(first.T); ok {
			main = timeline.Trim(in.Main, first.T)
			main[len(main)-1].Power = v
		}
		joined = timeline.Join(joined, first.T, first.Power)
	} else if !in.Cutoff.IsZero() {
		main = timeline.Trim(in.Main, in.Cutoff)
	}

	out := make(Rows, 0, len(main)+len(joined))
	for _, p := range main {
		out = append(out, Row{T: p.T, Power: p.Power, Source: model.SourceMain})
	}
	for _, p := range joined {
		out = append(out, Row{T: p.T, Power: p.Power, Source: model.SourceJoined})
	}
	return out
}

// Resample rebuilds every source group on a uniform grid starting at the
// group's first instant. Duplicate timestamps are dropped, keeping the first
// sample, and powers are linearly interpolated in time. The group's last
// instant is kept when it is off the grid so the integrated span is unchanged.
func Resample(rows Rows, step time.Duration) (Rows, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStep, step)
	}
	var out Rows
	for _, src := range sources(rows) {
		s := dedupe(group(rows, src))
		if len(s) == 0 {
			continue
		}
		first, _ := s.First()
		last, _ := s.Last()
		t := first.T
		for !t.After(last.T) {
			v, _ := s.ValueAt(t)
			out = append(out, Row{T: t, Power: v, Source: src})
			t = t.Add(step)
		}
		if out[len(out)-1].T.Before(last.T) {
			out = append(out, Row{T: last.T, Power: last.Power, Source: src})
		}
	}
	return out, nil
}

// MarkHolds flags every row inside one of the windows. Bounds are inclusive.
func MarkHolds(rows Rows, windows []model.HoldWindow) Rows {
	out := make(Rows, len(rows))
	copy(out, rows)
	for i := range out {
		for _, w := range windows {
			if w.End.After(w.Start) && w.Contains(out[i].T) {
				out[i].IsHold = true
				break
			}
		}
	}
	return out
}

// Trapezoid returns the MWh under rows, sorted by time. Fewer than two rows
// yield zero.
func Trapezoid(rows Rows) float64 {
	if len(rows) < 2 {
		return 0
	}
	sorted := make(Rows, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T.Before(sorted[j].T) })

	t0 := sorted[0].T
	x := make([]float64, len(sorted))
	f := make([]float64, len(sorted))
	for i, r := range sorted {
		x[i] = r.T.Sub(t0).Hours()
		f[i] = r.Power
	}
	return integrate.Trapezoidal(x, f)
}

// BySource integrates each source group on its own.
func BySource(rows Rows) map[model.Source]float64 {
	out := map[model.Source]float64{model.SourceMain: 0, model.SourceJoined: 0}
	for _, src := range sources(rows) {
		var g Rows
		for _, r := range rows {
			if r.Source == src {
				g = append(g, r)
			}
		}
		out[src] = Trapezoid(g)
	}
	return out
}

// Summarize returns the origin/override totals and the hold/ramp split. The
// hold share is the same integral restricted to rows flagged IsHold.
func Summarize(rows Rows) model.EnergySummary {
	if len(rows) == 0 {
		return model.EnergySummary{}
	}
	per := BySource(rows)
	origin := per[model.SourceMain]
	override := per[model.SourceJoined]
	total := floats.Sum([]float64{origin, override})

	var holds Rows
	for _, r := range rows {
		if r.IsHold {
			holds = append(holds, r)
		}
	}
	hold := Trapezoid(holds)
	return model.EnergySummary{
		OriginMWh:   origin,
		OverrideMWh: override,
		TotalMWh:    total,
		HoldMWh:     hold,
		RampMWh:     math.Max(total-hold, 0),
	}
}

// Compute builds, resamples, flags and integrates the plan in one go. A zero
// step skips resampling.
func Compute(in Input, windows []model.HoldWindow, step time.Duration) (Rows, model.EnergySummary, error) {
	rows := BuildRows(in)
	for _, r := range rows {
		if math.IsNaN(r.Power) || math.IsInf(r.Power, 0) {
			return nil, model.EnergySummary{}, fmt.Errorf("%w at %s", ErrInvalidRow, r.T.Format(time.RFC3339))
		}
	}
	if step != 0 {
		var err error
		if rows, err = Resample(rows, step); err != nil {
			return nil, model.EnergySummary{}, err
		}
	}
	rows = MarkHolds(rows, windows)
	return rows, Summarize(rows), nil
}

// MinuteOffsets returns the minutes elapsed since the first row for each row.
func MinuteOffsets(rows Rows) []float64 {
	out := make([]float64, len(rows))
	if len(rows) == 0 {
		return out
	}
	t0 := rows[0].T
	for _, r := range rows {
		if r.T.Before(t0) {
			t0 = r.T
		}
	}
	for i, r := range rows {
		out[i] = r.T.Sub(t0).Minutes()
	}
	return out
}

func sources(rows Rows) []model.Source {
	var out []model.Source
	seen := map[model.Source]bool{}
	for _, r := range rows {
		if !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	return out
}

func group(rows Rows, src model.Source) model.Series {
	var s model.Series
	for _, r := range rows {
		if r.Source == src {
			s = append(s, model.Point{T: r.T, Power: r.Power})
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].T.Before(s[j].T) })
	return s
}

func dedupe(s model.Series) model.Series {
	if len(s) == 0 {
		return s
	}
	out := model.Series{s[0]}
	for _, p := range s[1:] {
		if p.T.Equal(out[len(out)-1].T) {
			continue
		}
		out = append(out, p)
	}
	return out
}
