package scenarios

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/loadchange/core/alarm"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/journal"
	"github.com/kilianp07/loadchange/core/logger"
	coremetrics "github.com/kilianp07/loadchange/core/metrics"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/infra/metrics"
	"github.com/kilianp07/loadchange/internal/eventbus"
)

// VirtualClock is a settable engine clock.
type VirtualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock. It never moves backwards.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.t) {
		c.t = t
	}
}

// Options configures a replay.
type Options struct {
	Config   model.RampConfig
	Journal  journal.Store
	Notifier alarm.Notifier
	Logger   logger.Logger
	// Sink receives the session events of the replay when set.
	Sink coremetrics.Sink
}

// Result is what a replay observed.
type Result struct {
	Deferrals int
	Commands  int
	FinalMW   float64
	Frozen    bool
	Alarms    []string
	Summary   model.EnergySummary
	Report    engine.Report
}

// Run replays sc against a fresh session driven by a virtual clock. Every
// step ticks the session at its instant before acting.
func Run(ctx context.Context, sc *Scenario, opts Options) (Result, error) {
	day, err := sc.Day()
	if err != nil {
		return Result{}, err
	}
	base := opts.Config
	if base == (model.RampConfig{}) {
		base = model.DefaultRampConfig()
	}
	cfg, err := sc.Engine.Apply(base)
	if err != nil {
		return Result{}, fmt.Errorf("engine: %w", err)
	}
	at, err := clockAt(sc.Enter.At, day)
	if err != nil {
		return Result{}, fmt.Errorf("enter: %w", err)
	}
	clock := &VirtualClock{t: at}
	var bus *eventbus.Bus[engine.Event]
	if opts.Sink != nil {
		bus = eventbus.New[engine.Event](256)
		done := metrics.StartEventCollector(ctx, bus, opts.Sink, opts.Logger)
		defer func() {
			bus.Close()
			<-done
		}()
	}
	s, err := engine.NewSession(engine.Options{
		Config:   cfg,
		Clock:    clock,
		Journal:  opts.Journal,
		Notifier: opts.Notifier,
		Logger:   opts.Logger,
		Bus:      bus,
	})
	if err != nil {
		return Result{}, err
	}
	if _, err := s.Enter(ctx, engine.EnterRequest{StartMW: sc.Enter.StartMW, TargetMW: sc.Enter.TargetMW, At: at}); err != nil {
		return Result{}, fmt.Errorf("enter: %w", err)
	}

	for i, st := range sc.Steps {
		now, err := clockAt(st.At, day)
		if err != nil {
			return Result{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		clock.Set(now)
		s.Tick(ctx)
		if err := apply(ctx, s, st, day); err != nil {
			return Result{}, fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	if sc.End != "" {
		end, err := clockAt(sc.End, day)
		if err != nil {
			return Result{}, fmt.Errorf("end: %w", err)
		}
		clock.Set(end)
	}
	s.Tick(ctx)

	snap := s.Snapshot()
	res := Result{
		Deferrals: snap.Deferrals,
		Commands:  len(snap.Queue),
		Frozen:    snap.Frozen,
		Summary:   snap.Summary,
		Report:    snap.Report(),
	}
	if last, ok := snap.Series.Last(); ok {
		res.FinalMW = last.Power
	}
	for k, fired := range s.Fired() {
		if fired {
			res.Alarms = append(res.Alarms, k.String())
		}
	}
	sort.Strings(res.Alarms)
	return res, nil
}

func apply(ctx context.Context, s *engine.Session, st Step, day time.Time) error {
	switch st.Action {
	case "append":
		req := engine.AppendRequest{TargetMW: st.TargetMW, HoldMinutes: st.HoldMinutes}
		start := st.Start
		if start == "" {
			start = st.At
		}
		t, err := clockAt(start, day)
		if err != nil {
			return err
		}
		req.At = t
		_, err = s.Append(ctx, req)
		return err
	case "hold":
		req := engine.HoldRequest{Power: st.PowerMW}
		if st.Start != "" {
			t, err := clockAt(st.Start, day)
			if err != nil {
				return err
			}
			req.At = t
		}
		_, err := s.HoldNow(ctx, req)
		return err
	case "log":
		if st.PowerMW == nil {
			return fmt.Errorf("log needs power_mw")
		}
		_, err := s.LogHold(ctx, *st.PowerMW, st.Duration)
		return err
	case "reset":
		s.Reset(ctx)
		return nil
	case "tick":
		return nil
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

// Check compares res with the expectations and returns one line per
// mismatch.
func Check(exp Expected, res Result) []string {
	var out []string
	if exp.Deferrals != nil && *exp.Deferrals != res.Deferrals {
		out = append(out, fmt.Sprintf("deferrals: want %d, got %d", *exp.Deferrals, res.Deferrals))
	}
	if exp.Commands != nil && *exp.Commands != res.Commands {
		out = append(out, fmt.Sprintf("commands: want %d, got %d", *exp.Commands, res.Commands))
	}
	if exp.FinalMW != nil && math.Abs(*exp.FinalMW-res.FinalMW) > 1e-6 {
		out = append(out, fmt.Sprintf("final power: want %g MW, got %g MW", *exp.FinalMW, res.FinalMW))
	}
	if exp.Frozen != nil && *exp.Frozen != res.Frozen {
		out = append(out, fmt.Sprintf("frozen: want %t, got %t", *exp.Frozen, res.Frozen))
	}
	fired := map[string]bool{}
	for _, a := range res.Alarms {
		fired[a] = true
	}
	for _, a := range exp.Alarms {
		if !fired[a] {
			out = append(out, fmt.Sprintf("alarm %s did not fire", a))
		}
	}
	for _, a := range exp.NotAlarms {
		if fired[a] {
			out = append(out, fmt.Sprintf("alarm %s fired", a))
		}
	}
	if exp.TotalMWh != nil {
		tol := exp.ToleranceMWh
		if tol <= 0 {
			tol = 1e-3
		}
		if math.Abs(*exp.TotalMWh-res.Summary.TotalMWh) > tol {
			out = append(out, fmt.Sprintf("total energy: want %g MWh, got %g MWh", *exp.TotalMWh, res.Summary.TotalMWh))
		}
	}
	return out
}
