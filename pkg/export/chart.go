package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/loadchange/core/energy"
	"github.com/kilianp07/loadchange/core/model"
)

// Chart describes the plan to draw.
type Chart struct {
	Title   string
	Rows    energy.Rows
	Summary model.EnergySummary
}

// WriteChart renders the rows as an HTML line chart, one line per source.
// Instants missing from a source are left as gaps.
func WriteChart(w io.Writer, c Chart) error {
	if len(c.Rows) == 0 {
		return ErrEmpty
	}
	var instants []time.Time
	seen := map[time.Time]bool{}
	values := map[model.Source]map[time.Time]float64{}
	var order []model.Source
	for _, r := range c.Rows {
		if !seen[r.T] {
			seen[r.T] = true
			instants = append(instants, r.T)
		}
		m, ok := values[r.Source]
		if !ok {
			m = map[time.Time]float64{}
			values[r.Source] = m
			order = append(order, r.Source)
		}
		m[r.T] = r.Power
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })

	xAxis := make([]string, len(instants))
	for i, t := range instants {
		xAxis[i] = t.Format("15:04:05")
	}

	title := c.Title
	if title == "" {
		title = "Load change plan"
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("total %.3f MWh, hold %.3f MWh, ramp %.3f MWh", c.Summary.TotalMWh, c.Summary.HoldMWh, c.Summary.RampMWh),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Load (MW)"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{}),
	)
	line.SetXAxis(xAxis)
	for _, src := range order {
		m := values[src]
		data := make([]opts.LineData, len(instants))
		for i, t := range instants {
			if v, ok := m[t]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(src.String(), data)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
