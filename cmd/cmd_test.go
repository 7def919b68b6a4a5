package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/journal"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/pkg/export"
)

var day = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newConsole(t *testing.T, now time.Time) (*Console, *bytes.Buffer) {
	t.Helper()
	s, err := engine.NewSession(engine.Options{
		Config: model.DefaultRampConfig(),
		Clock:  engine.ClockFunc(func() time.Time { return now }),
	})
	require.NoError(t, err)
	var out bytes.Buffer
	return NewConsole(s, func() time.Time { return now }, &out), &out
}

func TestConsoleEnterAndAppend(t *testing.T) {
	c, out := newConsole(t, day.Add(10*time.Hour+5*time.Minute))
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "enter 400 500 10:00"))
	assert.Contains(t, out.String(), "Reached 429 MW: 10:02")
	assert.Contains(t, out.String(), "> Increase Unit load to 500 MW")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "append 520 10:10"))
	assert.Contains(t, out.String(), "deferred:")
	assert.Contains(t, out.String(), "at 10:17:12")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "commands 1, deferrals 1, frozen false")
}

func TestConsoleHoldLogReset(t *testing.T) {
	c, out := newConsole(t, day.Add(10*time.Hour+time.Minute))
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "enter 400 500 10:00"))
	out.Reset()
	require.NoError(t, c.Exec(ctx, "hold now 413"))
	assert.Contains(t, out.String(), "frozen at 10:01:00, 413 MW")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "log 413 until further notice"))
	assert.Equal(t, "> Hold the load at 413 MW\n", out.String())

	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "frozen true")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "reset"))
	require.NoError(t, c.Exec(ctx, "report"))
	assert.Equal(t, "plan cleared\nno plan entered\n", out.String())
}

func TestConsoleErrors(t *testing.T) {
	c, _ := newConsole(t, day.Add(10*time.Hour))
	ctx := context.Background()

	assert.NoError(t, c.Exec(ctx, "   "))
	assert.ErrorIs(t, c.Exec(ctx, "quit"), errQuit)
	assert.ErrorContains(t, c.Exec(ctx, "launch"), "unknown command")
	assert.ErrorContains(t, c.Exec(ctx, "enter 400"), "usage")
	assert.ErrorIs(t, c.Exec(ctx, "enter abc 500"), engine.ErrInvalidInput)
	assert.ErrorIs(t, c.Exec(ctx, "append 500 10:00"), engine.ErrNoBasePlan)
	assert.ErrorIs(t, c.Exec(ctx, "hold"), engine.ErrNoBasePlan)
	assert.ErrorContains(t, c.Exec(ctx, "export"), "usage")
}

func TestConsoleModeAppliesToEnter(t *testing.T) {
	c, out := newConsole(t, day.Add(10*time.Hour))
	ctx := context.Background()

	require.NoError(t, c.Exec(ctx, "mode"))
	assert.Equal(t, "mode 3 Puls, pause 429 0 min, hold pause 30 min\n", out.String())

	out.Reset()
	require.NoError(t, c.Exec(ctx, "mode 4 Puls 10 20"))
	assert.Equal(t, "mode 4 Puls, pause 429 10 min, hold pause 20 min\n", out.String())

	out.Reset()
	require.NoError(t, c.Exec(ctx, "enter 400 500 10:00"))
	assert.Contains(t, out.String(), "Hold at 429 MW complete: 10:02")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "status"))
	assert.Contains(t, out.String(), "(4 Puls)")

	out.Reset()
	require.NoError(t, c.Exec(ctx, "mode 3"))
	require.NoError(t, c.Exec(ctx, "enter 400 500 10:00"))
	assert.Contains(t, out.String(), "Hold at 429 MW complete: 10:17")

	assert.Error(t, c.Exec(ctx, "mode 5"))
	assert.ErrorIs(t, c.Exec(ctx, "mode 4 -1"), engine.ErrInvalidInput)
}

func TestConsoleExport(t *testing.T) {
	c, out := newConsole(t, day.Add(10*time.Hour))
	ctx := context.Background()
	require.NoError(t, c.Exec(ctx, "enter 400 500 10:00"))

	path := filepath.Join(t.TempDir(), "plan.csv")
	require.NoError(t, c.Exec(ctx, "export "+path))
	assert.Contains(t, out.String(), "exported "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "time,minute_offset,mw,source,is_hold\n"))

	html := filepath.Join(t.TempDir(), "plan.out")
	require.NoError(t, c.Exec(ctx, "export "+html+" html"))
	data, err = os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Increase Unit load to 500 MW")
}

func TestComputePlan(t *testing.T) {
	now := day.Add(9 * time.Hour)
	snap, err := computePlan(context.Background(), model.DefaultRampConfig(), 0, "400", "500", "10:00", now)
	require.NoError(t, err)
	final, ok := snap.Markers.Get(model.MarkerFinalLoad)
	require.True(t, ok)
	assert.Equal(t, day.Add(10*time.Hour+22*time.Minute+35*time.Second), final)

	var out bytes.Buffer
	printReport(&out, snap)
	assert.Contains(t, out.String(), "Total load time: 10:22")
	assert.Contains(t, out.String(), "energy: origin")

	_, err = computePlan(context.Background(), model.DefaultRampConfig(), 0, "-1", "500", "", now)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = computePlan(context.Background(), model.DefaultRampConfig(), 0, "400", "500", "25:99", now)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestEnterBase(t *testing.T) {
	now := day.Add(9 * time.Hour)
	newSession := func(t *testing.T) *engine.Session {
		s, err := engine.NewSession(engine.Options{
			Config: model.DefaultRampConfig(),
			Clock:  engine.ClockFunc(func() time.Time { return now }),
		})
		require.NoError(t, err)
		return s
	}
	ctx := context.Background()

	s := newSession(t)
	entered, err := enterBase(ctx, s, "", "", "", "", now)
	require.NoError(t, err)
	assert.False(t, entered)
	assert.False(t, s.Snapshot().HasPlan)

	entered, err = enterBase(ctx, s, "400", "500", "10:00", "4 Puls", now)
	require.NoError(t, err)
	assert.True(t, entered)
	snap := s.Snapshot()
	require.True(t, snap.HasPlan)
	assert.Equal(t, model.FourStage, snap.Config.PulverizerMode)
	assert.Equal(t, day.Add(10*time.Hour), snap.Start)

	s = newSession(t)
	entered, err = enterBase(ctx, s, "400", "500", "", "", now)
	require.NoError(t, err)
	assert.True(t, entered)
	assert.Equal(t, now, s.Snapshot().Start)
	assert.Equal(t, model.ThreeStage, s.Snapshot().Config.PulverizerMode)

	_, err = enterBase(ctx, newSession(t), "400", "", "", "", now)
	assert.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = enterBase(ctx, newSession(t), "400", "500", "", "5 Puls", now)
	assert.Error(t, err)
}

func TestWriteEntries(t *testing.T) {
	ts := day.Add(10 * time.Hour)
	entries := []journal.Entry{{Timestamp: ts, Kind: journal.KindEnter, Fields: map[string]any{"target_power": 500}}}

	var csvOut bytes.Buffer
	require.NoError(t, writeEntries(&csvOut, export.FormatCSV, entries))
	assert.Equal(t, "timestamp,kind,fields\n2025-03-01T10:00:00Z,enter,\"{\"\"target_power\"\":500}\"\n", csvOut.String())

	var jsonOut bytes.Buffer
	require.NoError(t, writeEntries(&jsonOut, export.FormatJSON, nil))
	assert.Equal(t, "[]\n", jsonOut.String())

	assert.Error(t, writeEntries(&jsonOut, export.FormatHTML, entries))
}

func TestJournalQuery(t *testing.T) {
	q, err := journalQuery("alarm", "2025-03-01T10:00:00Z", "")
	require.NoError(t, err)
	assert.Equal(t, journal.KindAlarm, q.Kind)
	assert.Equal(t, day.Add(10*time.Hour), q.Start)
	assert.True(t, q.End.IsZero())

	_, err = journalQuery("", "", "yesterday")
	assert.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"replay", "--env-file", "", filepath.Join("..", "qa", "scenarios", "testdata", "*.yaml")})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "ok   deferred override")
	assert.NotContains(t, out.String(), "FAIL")
}
