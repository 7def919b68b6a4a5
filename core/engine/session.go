// Package engine holds the live load change session: the base plan, the
// queue of operator commands, the freeze anchor and the derived energy and
// alarm state. A Session serializes every mutation; readers get snapshots of
// the last fully composed plan.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/loadchange/core/alarm"
	"github.com/kilianp07/loadchange/core/energy"
	"github.com/kilianp07/loadchange/core/journal"
	"github.com/kilianp07/loadchange/core/logger"
	"github.com/kilianp07/loadchange/core/model"
	"github.com/kilianp07/loadchange/core/monitoring"
	"github.com/kilianp07/loadchange/core/ramp"
	"github.com/kilianp07/loadchange/core/scheduler"
	"github.com/kilianp07/loadchange/core/timeline"
	"github.com/kilianp07/loadchange/internal/eventbus"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// alarmKeys are the markers that trigger operator alarms, in firing order.
var alarmKeys = []model.MarkerKind{
	model.MarkerReached429,
	model.MarkerPostPause,
	model.MarkerHoldComplete,
	model.MarkerFinalLoad,
	model.MarkerOverrideComplete,
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	Config   model.RampConfig
	Messages map[model.MarkerKind]string
	// ResampleStep is the energy resample resolution. Zero selects one
	// minute, a negative value integrates the raw samples.
	ResampleStep time.Duration
	Clock        Clock
	Logger       logger.Logger
	Notifier     alarm.Notifier
	Journal      journal.Store
	Bus          *eventbus.Bus[Event]
}

// EnterRequest starts a new load change.
type EnterRequest struct {
	StartMW  float64
	TargetMW float64
	At       time.Time
	// Config overrides the session ramp config for this plan.
	Config *model.RampConfig
}

// AppendRequest queues an operator override.
type AppendRequest struct {
	TargetMW    float64
	At          time.Time
	HoldMinutes int
}

// HoldRequest freezes the plan. A zero At follows the clock; a nil Power is
// read from the plan.
type HoldRequest struct {
	At    time.Time
	Power *float64
}

// Anchor is the instant and power the next appended command starts from.
type Anchor struct {
	T     time.Time `json:"t"`
	Power float64   `json:"mw"`
	// Snapped is set when the requested instant fell inside a hold window
	// and was moved to its end.
	Snapped bool `json:"snapped"`
}

// AppendResult reports the scheduling outcome of an appended command.
type AppendResult struct {
	Command  model.Command
	Decision scheduler.Decision
}

// TickResult is what one tick observed.
type TickResult struct {
	Now    time.Time
	LiveMW float64
	LiveOK bool
	Fired  []model.MarkerKind
	Advice *alarm.Advice
}

// Session is one operator's load change timeline.
type Session struct {
	mu sync.RWMutex

	defaults model.RampConfig
	messages map[model.MarkerKind]string
	step     time.Duration
	clock    Clock
	log      logger.Logger
	notifier alarm.Notifier
	journal  journal.Store
	bus      *eventbus.Bus[Event]

	cfg       model.RampConfig
	enter     EnterRequest
	base      *ramp.Profile
	queue     []model.Command
	plan      scheduler.Plan
	anchor    *Anchor
	cutoff    time.Time
	deferrals int

	main      model.Series
	joined    model.Series
	welded    model.Series
	rows      energy.Rows
	summary   model.EnergySummary
	markers   model.Markers
	energyErr error
	integrate func(energy.Input, []model.HoldWindow, time.Duration) (energy.Rows, model.EnergySummary, error)

	fired       map[model.MarkerKind]bool
	adviceShown bool
	live        float64
	liveOK      bool
}

// NewSession validates opts and returns an empty session.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s := &Session{
		defaults:  cfg,
		cfg:       cfg,
		messages:  DefaultMessages(cfg),
		step:      opts.ResampleStep,
		clock:     opts.Clock,
		log:       opts.Logger,
		notifier:  opts.Notifier,
		journal:   opts.Journal,
		bus:       opts.Bus,
		markers:   model.Markers{},
		fired:     map[model.MarkerKind]bool{},
		integrate: energy.Compute,
	}
	for k, v := range opts.Messages {
		if v != "" {
			s.messages[k] = v
		}
	}
	if s.step == 0 {
		s.step = energy.DefaultStep
	} else if s.step < 0 {
		s.step = 0
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.log == nil {
		s.log = logger.Nop{}
	}
	if s.notifier == nil {
		s.notifier = alarm.Nop
	}
	if s.journal == nil {
		s.journal = journal.Discard{}
	}
	return s, nil
}

// DefaultMessages returns the alarm texts for cfg.
func DefaultMessages(cfg model.RampConfig) map[model.MarkerKind]string {
	return map[model.MarkerKind]string{
		model.MarkerReached429:       fmt.Sprintf("Load reached %s MW, hold the pulverizers", FormatMW(cfg.Threshold429)),
		model.MarkerPostPause:        fmt.Sprintf("Hold at %s MW complete, continue the load change", FormatMW(cfg.Threshold429)),
		model.MarkerHoldComplete:     fmt.Sprintf("Hold at %s MW complete", FormatMW(cfg.HoldPower)),
		model.MarkerFinalLoad:        "Target load reached",
		model.MarkerOverrideComplete: "Override command complete",
	}
}

// Enter simulates a new base plan. The queue, the freeze anchor and the
// alarm flags of the previous plan are discarded.
func (s *Session) Enter(ctx context.Context, req EnterRequest) (Snapshot, error) {
	if err := CheckPower("start power", req.StartMW); err != nil {
		return Snapshot{}, err
	}
	if err := CheckPower("target power", req.TargetMW); err != nil {
		return Snapshot{}, err
	}
	if req.At.IsZero() {
		return Snapshot{}, invalid("start time is required")
	}
	cfg := s.defaults
	if req.Config != nil {
		cfg = *req.Config
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	s.mu.Lock()
	prof := ramp.Simulate(req.StartMW, req.TargetMW, req.At, cfg)
	if !prof.Converged {
		s.log.Warnf("ramp %s -> %s MW stopped after %d steps", FormatMW(req.StartMW), FormatMW(req.TargetMW), prof.Steps)
	}
	s.cfg = cfg
	s.enter = req
	s.base = &prof
	s.clearOverrides()
	s.fired = map[model.MarkerKind]bool{}
	s.adviceShown = false
	s.recompute()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Infof("enter %s -> %s MW at %s (%s)", FormatMW(req.StartMW), FormatMW(req.TargetMW), req.At.Format("15:04:05"), cfg.PulverizerMode)
	s.record(ctx, journal.KindEnter, map[string]any{
		"time_now":       s.clock.Now(),
		"start_power":    req.StartMW,
		"target_power":   req.TargetMW,
		"start_time_str": req.At.Format("15:04:05"),
		"copy_text":      CopyText(req.StartMW, req.TargetMW),
	})
	s.publish(Event{Kind: EventEnter, Summary: snap.Summary, Mode: cfg.PulverizerMode})
	return snap, nil
}

// Append schedules a command after the previous one and rebuilds the joined
// plan. Without a freeze anchor the requested start is checked against the
// previous hold window and the start power is read from the plan on top at
// the resolved start. With an anchor the command starts at the anchor.
func (s *Session) Append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	if err := CheckPower("target power", req.TargetMW); err != nil {
		return AppendResult{}, err
	}
	if req.HoldMinutes < 0 {
		return AppendResult{}, invalid("hold minutes must not be negative")
	}

	s.mu.Lock()
	if s.base == nil {
		s.mu.Unlock()
		return AppendResult{}, ErrNoBasePlan
	}
	cmd := model.Command{
		ID:             uuid.NewString(),
		TargetPower:    req.TargetMW,
		RequestedStart: req.At,
		HoldMinutes:    req.HoldMinutes,
	}
	var dec scheduler.Decision
	if a := s.anchor; a != nil {
		cmd.RequestedStart = a.T
		cmd.StartPower = a.Power
		cmd.Anchored = true
		dec = scheduler.Decision{Accepted: true, ResolvedStart: a.T, Message: "start anchored at the freeze instant"}
	} else {
		if req.At.IsZero() {
			s.mu.Unlock()
			return AppendResult{}, invalid("start time is required")
		}
		var prev *model.HoldWindow
		if w, ok := scheduler.PreviousWindow(s.base, s.queue, s.plan.Segments); ok {
			prev = &w
		}
		dec = scheduler.Schedule(cmd, prev)
		cmd.StartPower, _ = s.top().ValueAt(dec.ResolvedStart)
	}
	cmd.ScheduledStart = dec.ResolvedStart

	s.queue = append(s.queue, cmd)
	s.plan = scheduler.Compose(s.queue, s.cfg)
	cmd = s.queue[len(s.queue)-1]
	s.anchor = nil
	s.cutoff = time.Time{}
	s.fired[model.MarkerOverrideComplete] = false
	if !dec.Accepted {
		s.deferrals++
	}
	s.recompute()
	summary := s.summary
	s.mu.Unlock()

	if dec.Accepted {
		s.log.Infof("append %s -> %s MW at %s", FormatMW(cmd.StartPower), FormatMW(cmd.TargetPower), cmd.ScheduledStart.Format("15:04:05"))
	} else {
		s.log.Warnf("append deferred: %s", dec.Message)
	}
	s.record(ctx, journal.KindAppend, map[string]any{
		"time_now":        s.clock.Now(),
		"id":              cmd.ID,
		"start_power":     cmd.StartPower,
		"target_power":    cmd.TargetPower,
		"requested_start": cmd.RequestedStart.Format("15:04:05"),
		"scheduled_start": cmd.ScheduledStart.Format("15:04:05"),
		"hold_minutes":    cmd.HoldMinutes,
		"accepted":        dec.Accepted,
		"anchored":        cmd.Anchored,
		"copy_text":       CopyText(cmd.StartPower, cmd.TargetPower),
	})
	c, d := cmd, dec
	s.publish(Event{Kind: EventAppend, Summary: summary, Mode: s.mode(), Command: &c, Decision: &d})
	return AppendResult{Command: cmd, Decision: dec}, nil
}

// HoldNow freezes the displayed plan at an anchor. An anchor inside the
// latest hold window is moved to that window's end and takes the plan power
// there. The anchor cuts the displayed series and becomes the start of the
// next appended command.
func (s *Session) HoldNow(ctx context.Context, req HoldRequest) (Anchor, error) {
	if req.Power != nil {
		if err := CheckPower("hold power", *req.Power); err != nil {
			return Anchor{}, err
		}
	}
	s.mu.Lock()
	if s.base == nil {
		s.mu.Unlock()
		return Anchor{}, ErrNoBasePlan
	}
	at := req.At
	if at.IsZero() {
		at = s.clock.Now()
	}
	top := s.top()
	a := Anchor{T: at}
	if req.Power != nil {
		a.Power = *req.Power
	} else {
		a.Power, _ = top.ValueAt(at)
	}
	if w, ok := scheduler.PreviousWindow(s.base, s.queue, s.plan.Segments); ok && w.Contains(at) {
		a.T = w.End
		a.Power, _ = top.ValueAt(w.End)
		a.Snapped = true
	}
	s.anchor = &a
	s.cutoff = a.T
	s.recompute()
	summary := s.summary
	s.mu.Unlock()

	if a.Snapped {
		s.log.Warnf("freeze at %s is inside a hold window, anchored at %s", at.Format("15:04:05"), a.T.Format("15:04:05"))
	} else {
		s.log.Infof("freeze at %s, %s MW", a.T.Format("15:04:05"), FormatMW(a.Power))
	}
	s.record(ctx, journal.KindFreeze, map[string]any{
		"time_now":  s.clock.Now(),
		"requested": at.Format("15:04:05"),
		"anchor":    a.T.Format("15:04:05"),
		"power":     a.Power,
		"snapped":   a.Snapped,
	})
	s.publish(Event{Kind: EventFreeze, Summary: summary, Mode: s.mode(), Frozen: true})
	return a, nil
}

// LogHold journals a manual hold instruction and returns its copy text.
func (s *Session) LogHold(ctx context.Context, levelMW float64, duration string) (string, error) {
	if err := CheckPower("holding load", levelMW); err != nil {
		return "", err
	}
	text := HoldText(levelMW)
	s.record(ctx, journal.KindHold, map[string]any{
		"time_now_hold": s.clock.Now(),
		"holding_time":  duration,
		"holding_load":  text,
	})
	s.publish(Event{Kind: EventHold, Text: text})
	return text, nil
}

// Reset drops the base plan and everything derived from it.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.base = nil
	s.enter = EnterRequest{}
	s.cfg = s.defaults
	s.clearOverrides()
	s.fired = map[model.MarkerKind]bool{}
	s.adviceShown = false
	s.recompute()
	s.mu.Unlock()

	s.log.Infof("session reset")
	s.record(ctx, journal.KindReset, map[string]any{"time_now": s.clock.Now()})
	s.publish(Event{Kind: EventReset})
}

// Tick refreshes the live plan power, fires due alarms and, once the final
// load alarm has fired, emits the control mode advice for the base plan.
// Alarms are marked under the session lock and delivered after it is
// released.
func (s *Session) Tick(ctx context.Context) TickResult {
	now := s.clock.Now()

	s.mu.Lock()
	res := TickResult{Now: now}
	res.LiveMW, res.LiveOK = s.welded.ValueAt(now)
	s.live, s.liveOK = res.LiveMW, res.LiveOK
	targets := map[model.MarkerKind]time.Time{}
	for _, k := range alarmKeys {
		if t, ok := s.markers.Get(k); ok {
			targets[k] = t
		}
	}
	var delivered []alarm.Fired[model.MarkerKind]
	s.fired, delivered = alarm.Evaluate(now, targets, s.fired, alarm.Nop, s.messages, alarmKeys...)
	for _, d := range delivered {
		res.Fired = append(res.Fired, d.Key)
	}
	if s.base != nil && !s.adviceShown && s.fired[model.MarkerFinalLoad] {
		adv := alarm.ControlModeAdvice(s.enter.TargetMW, s.cfg.FinalLoadMW)
		res.Advice = &adv
		s.adviceShown = true
	}
	mode := s.cfg.PulverizerMode
	frozen := !s.cutoff.IsZero()
	s.mu.Unlock()

	for _, d := range delivered {
		err := s.notifier.Notify(d.Text)
		if err != nil {
			s.log.Errorf("alarm %s not delivered: %v", d.Key, err)
		} else {
			s.log.Infof("alarm %s: %s", d.Key, d.Text)
		}
		s.record(ctx, journal.KindAlarm, map[string]any{
			"time_now":  now,
			"marker":    d.Key.String(),
			"text":      d.Text,
			"delivered": err == nil,
		})
		s.publish(Event{Kind: EventAlarm, Time: now, Marker: d.Key, Text: d.Text, Delivered: err == nil})
	}
	if res.Advice != nil {
		text := res.Advice.String()
		if err := s.notifier.Notify(text); err != nil {
			s.log.Errorf("control mode advice not delivered: %v", err)
		}
		s.publish(Event{Kind: EventAdvice, Time: now, Text: text})
	}
	if res.LiveOK {
		s.publish(Event{Kind: EventTick, Time: now, LiveMW: res.LiveMW, Mode: mode, Frozen: frozen})
	}
	return res
}

// Deferrals returns how many appended commands had their start moved.
func (s *Session) Deferrals() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deferrals
}

// Fired returns the alarm flags.
func (s *Session) Fired() map[model.MarkerKind]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.MarkerKind]bool, len(s.fired))
	for k, v := range s.fired {
		out[k] = v
	}
	return out
}

func (s *Session) clearOverrides() {
	s.queue = nil
	s.plan = scheduler.Plan{}
	s.anchor = nil
	s.cutoff = time.Time{}
	s.deferrals = 0
}

func (s *Session) mode() model.PulverizerMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.PulverizerMode
}

// top is the series an operator sees on top, before any freeze cut.
func (s *Session) top() model.Series {
	var main model.Series
	if s.base != nil {
		main = s.base.Series
	}
	return timeline.Top(main, s.plan.Series())
}

// recompute rebuilds the displayed series, markers and energy. An energy
// failure keeps the previous summary.
func (s *Session) recompute() {
	s.main, s.joined, s.welded = nil, nil, nil
	s.markers = model.Markers{}
	if s.base == nil {
		s.rows = nil
		s.summary = model.EnergySummary{}
		s.energyErr = nil
		return
	}
	main := s.base.Series
	joined := s.plan.Series()
	if !s.cutoff.IsZero() {
		main = timeline.Trim(main, s.cutoff)
		if first, ok := joined.First(); ok && !s.cutoff.Before(first.T) {
			joined = timeline.Trim(joined, s.cutoff)
		} else {
			joined = nil
		}
	}
	s.main, s.joined = main, joined
	if first, ok := joined.First(); ok {
		s.welded = timeline.Weld(main, joined, first.T, first.T, first.Power)
	} else {
		s.welded = main.Clone()
	}

	markers := s.base.Markers.Clone()
	if n := len(s.queue); n > 0 {
		markers.Set(model.MarkerOverrideComplete, s.queue[n-1].HoldStart)
	}
	if !s.cutoff.IsZero() {
		markers = markers.Until(s.cutoff)
		markers.Set(model.MarkerFreeze, s.cutoff)
	}
	s.markers = markers

	rows, summary, err := s.integrate(energy.Input{Main: main, Joined: joined, Cutoff: s.cutoff}, s.holdWindows(), s.step)
	if err != nil {
		s.energyErr = err
		s.log.Warnf("energy summary kept after failure: %v", err)
		monitoring.Capture("energy", err)
		return
	}
	s.energyErr = nil
	s.rows, s.summary = rows, summary
}

// holdWindows lists the windows still present in the displayed plan: base
// windows before the joined start, the surviving command windows, all of
// them cut at the freeze instant.
func (s *Session) holdWindows() []model.HoldWindow {
	out := s.base.HoldWindows()
	if first, ok := s.plan.Series().First(); ok {
		out = model.ClipWindows(out, first.T)
	}
	out = append(out, s.plan.Windows...)
	return model.ClipWindows(out, s.cutoff)
}

func (s *Session) record(ctx context.Context, kind journal.Kind, fields map[string]any) {
	e := journal.Entry{Timestamp: s.clock.Now(), Kind: kind, Fields: fields}
	if err := s.journal.Append(ctx, e); err != nil {
		s.log.Errorf("journal %s: %v", kind, err)
		monitoring.Capture("journal", err, "kind", string(kind))
	}
}

func (s *Session) publish(ev Event) {
	if s.bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = s.clock.Now()
	}
	s.bus.Publish(ev)
}
