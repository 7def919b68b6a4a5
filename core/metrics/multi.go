package metrics

import (
	"errors"
	"time"
)

// MultiSink fans every record out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSummary forwards to all sinks and joins their errors.
func (m *MultiSink) RecordSummary(ev SummaryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordSummary(ev))
	}
	return errors.Join(errs...)
}

// RecordCommand forwards to all sinks and joins their errors.
func (m *MultiSink) RecordCommand(ev CommandEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCommand(ev))
	}
	return errors.Join(errs...)
}

// RecordAlarm forwards to all sinks and joins their errors.
func (m *MultiSink) RecordAlarm(ev AlarmEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordAlarm(ev))
	}
	return errors.Join(errs...)
}

// RecordPower forwards to the sinks implementing PowerRecorder.
func (m *MultiSink) RecordPower(mw float64, at time.Time) error {
	var errs []error
	for _, s := range m.Sinks {
		if pr, ok := s.(PowerRecorder); ok {
			errs = append(errs, pr.RecordPower(mw, at))
		}
	}
	return errors.Join(errs...)
}

// Close releases the sinks that hold resources.
func (m *MultiSink) Close() { closeAll(m.Sinks) }
