package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/core/model"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func at(min int) time.Time { return t0.Add(time.Duration(min) * time.Minute) }

func sample() model.Series {
	return model.Series{
		{T: at(0), Power: 400},
		{T: at(10), Power: 420},
		{T: at(20), Power: 440},
	}
}

func TestTrimAtLastTimestampIsIdentity(t *testing.T) {
	s := sample()
	got := Trim(s, at(20))
	assert.Equal(t, s, got)
}

func TestTrimWeldsAtCutoff(t *testing.T) {
	got := Trim(sample(), at(15))
	require.Len(t, got, 3)
	assert.Equal(t, model.Point{T: at(15), Power: 420}, got[2])
}

func TestTrimExactPointNoWeld(t *testing.T) {
	got := Trim(sample(), at(10))
	require.Len(t, got, 2)
	assert.Equal(t, at(10), got[1].T)
}

func TestTrimBeforeFirstPoint(t *testing.T) {
	got := Trim(sample(), at(-5))
	require.Len(t, got, 1)
	assert.Equal(t, model.Point{T: at(-5), Power: 400}, got[0])
}

func TestTrimAfterLastExtendsFlat(t *testing.T) {
	got := Trim(sample(), at(30))
	require.Len(t, got, 4)
	assert.Equal(t, model.Point{T: at(30), Power: 440}, got[3])
	assert.Nil(t, Trim(nil, at(1)))
}

func TestJoin(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		power float64
		want  model.Series
	}{
		{"prepend", at(5), 410, model.Series{{T: at(5), Power: 410}, {T: at(10), Power: 420}, {T: at(20), Power: 440}}},
		{"overwrite", at(10), 425, model.Series{{T: at(10), Power: 425}, {T: at(20), Power: 440}}},
		{"keep", at(10), 420, model.Series{{T: at(10), Power: 420}, {T: at(20), Power: 440}}},
		{"nothing left", at(30), 450, model.Series{{T: at(30), Power: 450}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Join(sample(), c.start, c.power))
		})
	}
}

func TestJoinDoesNotMutateInput(t *testing.T) {
	s := sample()
	_ = Join(s, at(10), 999)
	assert.Equal(t, 420.0, s[1].Power)
}

func TestBridge(t *testing.T) {
	assert.Nil(t, Bridge(at(10), at(10), 420))
	b := Bridge(at(10), at(25), 420)
	require.Len(t, b, 2)
	assert.Equal(t, b[0].Power, b[1].Power)
}

func TestWeldAcrossGapIsContinuous(t *testing.T) {
	main := sample()
	next := model.Series{{T: at(30), Power: 430}, {T: at(40), Power: 500}}
	got := Weld(main, next, at(15), at(30), 420)
	require.True(t, Continuous(got))
	// cutoff, bridge end and join start all carry the boundary power
	var seen int
	for _, p := range got {
		if p.T.Equal(at(15)) || p.T.Equal(at(30)) {
			assert.Equal(t, 420.0, p.Power)
			seen++
		}
	}
	assert.Equal(t, 2, seen)
	last, _ := got.Last()
	assert.Equal(t, model.Point{T: at(40), Power: 500}, last)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].T.Equal(got[i-1].T), "duplicate timestamp at %d", i)
	}
}

func TestWeldWithoutGap(t *testing.T) {
	next := model.Series{{T: at(10), Power: 420}, {T: at(12), Power: 460}}
	got := Weld(sample(), next, at(10), at(10), 420)
	assert.Equal(t, model.Series{{T: at(0), Power: 400}, {T: at(10), Power: 420}, {T: at(12), Power: 460}}, got)
}

func TestWeldStartBeforeCutoff(t *testing.T) {
	next := model.Series{{T: at(5), Power: 300}, {T: at(30), Power: 450}}
	got := Weld(sample(), next, at(15), at(5), 420)
	assert.True(t, Continuous(got))
	first, _ := got.First()
	assert.Equal(t, at(0), first.T)
}

func TestTop(t *testing.T) {
	main := sample()
	assert.Equal(t, main, Top(main, nil))
	joined := model.Series{{T: at(1), Power: 1}}
	assert.Equal(t, joined, Top(main, joined))
}
