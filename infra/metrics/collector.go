package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/loadchange/core/metrics"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/infra/logger"
	"github.com/kilianp07/loadchange/internal/eventbus"
)

// StartEventCollector subscribes to the session bus and forwards events to
// sink until ctx is canceled or the bus is closed. The returned channel is
// closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[engine.Event], sink coremetrics.Sink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnf("metrics %s: %v", ev.Kind, err)
				}
			}
		}
	}()
	return done
}

// Record maps one session event onto the sink.
func Record(sink coremetrics.Sink, ev engine.Event) error {
	switch ev.Kind {
	case engine.EventEnter, engine.EventFreeze, engine.EventReset:
		return sink.RecordSummary(coremetrics.SummaryEvent{Summary: ev.Summary, Mode: ev.Mode, Frozen: ev.Frozen, Time: ev.Time})
	case engine.EventAppend:
		if err := sink.RecordSummary(coremetrics.SummaryEvent{Summary: ev.Summary, Mode: ev.Mode, Time: ev.Time}); err != nil {
			return err
		}
		if ev.Command == nil {
			return nil
		}
		c := ev.Command
		ce := coremetrics.CommandEvent{
			ID:             c.ID,
			StartPower:     c.StartPower,
			TargetPower:    c.TargetPower,
			HoldMinutes:    c.HoldMinutes,
			RequestedStart: c.RequestedStart,
			ResolvedStart:  c.ScheduledStart,
			Accepted:       true,
			Anchored:       c.Anchored,
			Time:           ev.Time,
		}
		if d := ev.Decision; d != nil {
			ce.Accepted = d.Accepted
			ce.ResolvedStart = d.ResolvedStart
		}
		return sink.RecordCommand(ce)
	case engine.EventAlarm:
		return sink.RecordAlarm(coremetrics.AlarmEvent{Marker: ev.Marker, Text: ev.Text, Delivered: ev.Delivered, Time: ev.Time})
	case engine.EventTick:
		if r, ok := sink.(coremetrics.PowerRecorder); ok {
			return r.RecordPower(ev.LiveMW, ev.Time)
		}
	}
	return nil
}
