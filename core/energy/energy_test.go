package energy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/ramp"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func TestTrapezoidFlatHour(t *testing.T) {
	rows := Rows{{T: t0, Power: 100}, {T: t0.Add(time.Hour), Power: 100}}
	assert.InDelta(t, 100.0, Trapezoid(rows), 1e-9)
}

func TestTrapezoidDegenerate(t *testing.T) {
	assert.Zero(t, Trapezoid(nil))
	assert.Zero(t, Trapezoid(Rows{{T: t0, Power: 300}}))
	assert.Equal(t, model.EnergySummary{}, Summarize(nil))
}

func TestTrapezoidSortsByTime(t *testing.T) {
	rows := Rows{
		{T: t0.Add(time.Hour), Power: 200},
		{T: t0, Power: 0},
	}
	assert.InDelta(t, 100.0, Trapezoid(rows), 1e-9)
}

func TestResampleInterpolatesAndDropsDuplicates(t *testing.T) {
	rows := Rows{
		{T: t0, Power: 0},
		{T: t0, Power: 50},
		{T: t0.Add(4 * time.Minute), Power: 40},
	}
	got, err := Resample(rows, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, r := range got {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Minute), r.T)
		assert.InDelta(t, float64(i*10), r.Power, 1e-9)
	}
}

func TestResampleKeepsOffGridEnd(t *testing.T) {
	rows := Rows{{T: t0, Power: 10}, {T: t0.Add(90 * time.Second), Power: 10}}
	got, err := Resample(rows, time.Minute)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, t0.Add(90*time.Second), got[2].T)
	assert.InDelta(t, Trapezoid(rows), Trapezoid(got), 1e-9)
}

func TestResampleRejectsStep(t *testing.T) {
	_, err := Resample(Rows{{T: t0}}, 0)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestSummarizeSplitsSources(t *testing.T) {
	rows := Rows{
		{T: t0, Power: 100, Source: model.SourceMain},
		{T: t0.Add(time.Hour), Power: 100, Source: model.SourceMain},
		{T: t0.Add(time.Hour), Power: 200, Source: model.SourceJoined},
		{T: t0.Add(2 * time.Hour), Power: 200, Source: model.SourceJoined},
	}
	rows = MarkHolds(rows, []model.HoldWindow{{Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)}})
	s := Summarize(rows)
	assert.InDelta(t, 100.0, s.OriginMWh, 1e-9)
	assert.InDelta(t, 200.0, s.OverrideMWh, 1e-9)
	assert.InDelta(t, 300.0, s.TotalMWh, 1e-9)
	assert.InDelta(t, 200.0, s.HoldMWh, 1e-9)
	assert.InDelta(t, 100.0, s.RampMWh, 1e-9)
}

func TestMarkHoldsIgnoresEmptyWindows(t *testing.T) {
	rows := Rows{{T: t0}, {T: t0.Add(time.Minute)}}
	got := MarkHolds(rows, []model.HoldWindow{{Start: t0, End: t0}})
	assert.False(t, got[0].IsHold)
	assert.False(t, rows[0].IsHold)
}

func TestBuildRowsTrimsMainAtJoin(t *testing.T) {
	main := model.Series{{T: t0, Power: 400}, {T: t0.Add(time.Hour), Power: 500}}
	joined := model.Series{{T: t0.Add(30 * time.Minute), Power: 450}, {T: t0.Add(time.Hour), Power: 450}}
	rows := BuildRows(Input{Main: main, Joined: joined})
	require.Len(t, rows, 4)
	assert.Equal(t, model.SourceMain, rows[1].Source)
	assert.Equal(t, t0.Add(30*time.Minute), rows[1].T)
	assert.InDelta(t, 450.0, rows[1].Power, 1e-9)
	assert.Equal(t, model.SourceJoined, rows[2].Source)
}

func TestBuildRowsFreezeCutoff(t *testing.T) {
	main := model.Series{{T: t0, Power: 400}, {T: t0.Add(time.Hour), Power: 500}}
	rows := BuildRows(Input{Main: main, Cutoff: t0.Add(15 * time.Minute)})
	require.Len(t, rows, 2)
	assert.Equal(t, t0.Add(15*time.Minute), rows[1].T)
}

func TestComputeRejectsNaN(t *testing.T) {
	_, _, err := Compute(Input{Main: model.Series{{T: t0, Power: math.NaN()}}}, nil, DefaultStep)
	assert.ErrorIs(t, err, ErrInvalidRow)
}

func TestComputeOnRampProfile(t *testing.T) {
	p := ramp.Simulate(400, 500, t0, model.DefaultRampConfig())
	rows, s, err := Compute(Input{Main: p.Series}, p.HoldWindows(), DefaultStep)
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Greater(t, s.TotalMWh, 0.0)
	assert.Greater(t, s.HoldMWh, 0.0)
	assert.InDelta(t, s.TotalMWh, s.HoldMWh+s.RampMWh, 1e-9)
	assert.Zero(t, s.OverrideMWh)
}

func TestMinuteOffsets(t *testing.T) {
	rows := Rows{{T: t0}, {T: t0.Add(90 * time.Second)}}
	assert.Equal(t, []float64{0, 1.5}, MinuteOffsets(rows))
}
