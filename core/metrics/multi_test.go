package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordSummary(SummaryEvent) error { r.count++; return r.err }
func (r *recordSink) RecordCommand(CommandEvent) error { r.count++; return r.err }
func (r *recordSink) RecordAlarm(AlarmEvent) error     { r.count++; return r.err }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2, NopSink{})
	assert.NoError(t, m.RecordSummary(SummaryEvent{}))
	assert.NoError(t, m.RecordCommand(CommandEvent{}))
	assert.NoError(t, m.RecordAlarm(AlarmEvent{}))
	assert.NoError(t, m.RecordPower(430, time.Now()))
	assert.Equal(t, 3, s1.count)
	assert.Equal(t, 3, s2.count)
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("down")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordAlarm(AlarmEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.count)
}

func TestCommandEventDirection(t *testing.T) {
	assert.Equal(t, "increase", CommandEvent{StartPower: 400, TargetPower: 500}.Direction())
	assert.Equal(t, "decrease", CommandEvent{StartPower: 500, TargetPower: 400}.Direction())
}
