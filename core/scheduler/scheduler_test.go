package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/ramp"
)

func clock(h, m int) time.Time {
	return time.Date(2025, 3, 1, h, m, 0, 0, time.UTC)
}

func TestScheduleDefersInsideWindow(t *testing.T) {
	w := &model.HoldWindow{Start: clock(10, 0), End: clock(10, 30)}

	d := Schedule(model.Command{RequestedStart: clock(10, 15)}, w)
	assert.False(t, d.Accepted)
	assert.Equal(t, clock(10, 30), d.ResolvedStart)
	assert.NotEmpty(t, d.Message)

	d = Schedule(model.Command{RequestedStart: clock(10, 31)}, w)
	assert.True(t, d.Accepted)
	assert.Equal(t, clock(10, 31), d.ResolvedStart)
	assert.Empty(t, d.Message)
}

func TestScheduleWindowBoundsAreClosed(t *testing.T) {
	w := &model.HoldWindow{Start: clock(10, 0), End: clock(10, 30)}
	for _, req := range []time.Time{clock(10, 0), clock(10, 30)} {
		d := Schedule(model.Command{RequestedStart: req}, w)
		assert.False(t, d.Accepted)
		assert.Equal(t, clock(10, 30), d.ResolvedStart)
	}
	d := Schedule(model.Command{RequestedStart: clock(9, 59)}, w)
	assert.True(t, d.Accepted)
}

func TestScheduleIgnoresDirection(t *testing.T) {
	w := &model.HoldWindow{Start: clock(10, 0), End: clock(10, 30)}
	up := Schedule(model.Command{StartPower: 400, TargetPower: 500, RequestedStart: clock(10, 40)}, w)
	down := Schedule(model.Command{StartPower: 500, TargetPower: 400, RequestedStart: clock(10, 40)}, w)
	assert.Equal(t, up.ResolvedStart, down.ResolvedStart)
	assert.True(t, down.Accepted)
}

func TestScheduleWithoutWindow(t *testing.T) {
	d := Schedule(model.Command{RequestedStart: clock(11, 0)}, nil)
	assert.True(t, d.Accepted)
	assert.Equal(t, clock(11, 0), d.ResolvedStart)
}

func TestPreviousWindowUsesBase429Window(t *testing.T) {
	base := ramp.Simulate(400, 500, clock(10, 0), model.DefaultRampConfig())
	w, ok := PreviousWindow(&base, nil, nil)
	require.True(t, ok)
	assert.Equal(t, 15*time.Minute, w.Duration())
	assert.Equal(t, "Hold @429", w.Label)
}

func TestPreviousWindowFallsBackToFinalInstant(t *testing.T) {
	cfg := model.DefaultRampConfig()
	cfg.PulverizerMode = model.FourStage
	base := ramp.Simulate(430, 500, clock(10, 0), cfg)
	w, ok := PreviousWindow(&base, nil, nil)
	require.True(t, ok)
	assert.Equal(t, base.FinalLoad, w.Start)
	assert.Equal(t, base.FinalLoad, w.End)

	_, ok = PreviousWindow(nil, nil, nil)
	assert.False(t, ok)
}

func TestPreviousWindowFromQueue(t *testing.T) {
	queue := []model.Command{{
		StartPower: 500, TargetPower: 520, RequestedStart: clock(11, 0), HoldMinutes: 10,
	}}
	plan := Compose(queue, model.DefaultRampConfig())
	w, ok := PreviousWindow(nil, queue, plan.Segments)
	require.True(t, ok)
	assert.Equal(t, queue[0].HoldStart, w.Start)
	assert.Equal(t, 10*time.Minute, w.Duration())
	assert.Equal(t, 520.0, w.Level)
}

func TestPreviousWindowScansSegments(t *testing.T) {
	segs := []model.Segment{
		{Point: model.Point{T: clock(10, 0), Power: 400}, Role: model.RoleRamp},
		{Point: model.Point{T: clock(10, 5), Power: 420}, Role: model.RoleHoldStart},
		{Point: model.Point{T: clock(10, 20), Power: 420}, Role: model.RoleHoldEnd},
		{Point: model.Point{T: clock(10, 30), Power: 440}, Role: model.RoleRamp},
	}
	queue := []model.Command{{StartPower: 420, TargetPower: 440, RequestedStart: clock(10, 20)}}
	w, ok := PreviousWindow(nil, queue, segs)
	require.True(t, ok)
	assert.Equal(t, clock(10, 5), w.Start)
	assert.Equal(t, clock(10, 20), w.End)

	_, ok = ScanHoldWindow(segs[:2])
	assert.False(t, ok)
}

func TestComposeTagsAndWritesBack(t *testing.T) {
	queue := []model.Command{
		{StartPower: 500, TargetPower: 510, RequestedStart: clock(11, 0), HoldMinutes: 5},
		{StartPower: 510, TargetPower: 505, RequestedStart: clock(11, 30)},
	}
	plan := Compose(queue, model.DefaultRampConfig())
	require.Len(t, plan.Profiles, 2)

	var holdStarts, holdEnds int
	for _, sg := range plan.Segments {
		switch sg.Role {
		case model.RoleHoldStart:
			holdStarts++
		case model.RoleHoldEnd:
			holdEnds++
		}
	}
	assert.Equal(t, 1, holdStarts)
	assert.Equal(t, 1, holdEnds)

	assert.Equal(t, plan.Profiles[0].End(), queue[0].HoldStart)
	assert.Equal(t, queue[0].HoldStart.Add(5*time.Minute), queue[0].HoldEnd)
	_, ok := queue[1].HoldWindow()
	assert.False(t, ok)
	w, ok := queue[0].HoldWindow()
	require.True(t, ok)
	assert.Contains(t, plan.Windows, w)

	first, _ := plan.Series().First()
	assert.Equal(t, model.Point{T: clock(11, 0), Power: 500}, first)
	last, _ := plan.Series().Last()
	assert.Equal(t, 505.0, last.Power)
}

func TestComposePrefersScheduledStart(t *testing.T) {
	queue := []model.Command{{
		StartPower: 500, TargetPower: 501, RequestedStart: clock(11, 0), ScheduledStart: clock(11, 10),
	}}
	plan := Compose(queue, model.DefaultRampConfig())
	first, _ := plan.Series().First()
	assert.Equal(t, clock(11, 10), first.T)
}

func TestLastEnd(t *testing.T) {
	base := ramp.Simulate(400, 500, clock(10, 0), model.DefaultRampConfig())
	end, ok := LastEnd(&base, nil, nil)
	require.True(t, ok)
	post, _ := base.Markers.Get(model.MarkerPostPause)
	assert.Equal(t, post, end)

	queue := []model.Command{{StartPower: 500, TargetPower: 510, RequestedStart: clock(11, 0), HoldMinutes: 5}}
	plan := Compose(queue, model.DefaultRampConfig())
	end, ok = LastEnd(&base, queue, plan.Segments)
	require.True(t, ok)
	assert.Equal(t, queue[0].HoldEnd, end)
}

func TestComposeCutsOverlappingCommand(t *testing.T) {
	queue := []model.Command{
		{StartPower: 500, TargetPower: 540, RequestedStart: clock(11, 0), HoldMinutes: 30},
		{StartPower: 505, TargetPower: 500, RequestedStart: clock(11, 0).Add(30 * time.Second)},
	}
	plan := Compose(queue, model.DefaultRampConfig())
	s := plan.Series()
	for i := 1; i < len(s); i++ {
		assert.True(t, s[i].T.After(s[i-1].T), "not increasing at %d", i)
	}
	_, ok := ScanHoldWindow(plan.Segments)
	assert.False(t, ok)
}

func TestComposeDropsWindowsOfCutCommands(t *testing.T) {
	queue := []model.Command{
		{StartPower: 400, TargetPower: 450, RequestedStart: clock(12, 0), HoldMinutes: 60},
		{StartPower: 400, TargetPower: 300, RequestedStart: clock(11, 0)},
	}
	plan := Compose(queue, model.DefaultRampConfig())
	last, _ := plan.Series().Last()
	for _, w := range plan.Windows {
		assert.False(t, w.Start.After(last.T), "window %s-%s outside the plan", w.Start, w.End)
	}
	_, ok := queue[0].HoldWindow()
	assert.True(t, ok)
	for _, w := range plan.Windows {
		assert.NotEqual(t, "override hold", w.Label)
	}
}

func TestComposeClipsWindowsAtLaterStart(t *testing.T) {
	queue := []model.Command{
		{StartPower: 500, TargetPower: 510, RequestedStart: clock(11, 0), HoldMinutes: 30},
		{StartPower: 510, TargetPower: 505, RequestedStart: clock(11, 10)},
	}
	plan := Compose(queue, model.DefaultRampConfig())
	require.Len(t, plan.Windows, 1)
	assert.Equal(t, queue[0].HoldStart, plan.Windows[0].Start)
	assert.Equal(t, clock(11, 10), plan.Windows[0].End)
}
