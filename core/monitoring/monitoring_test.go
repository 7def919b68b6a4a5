package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordMonitor struct {
	err     error
	tags    map[string]string
	panics  []any
	flushed bool
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(v any)  { r.panics = append(r.panics, v) }
func (r *recordMonitor) Flush(time.Duration) { r.flushed = true }

func TestCaptureTags(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	Capture("journal", errors.New("disk full"), "backend", "sqlite", "dangling")
	require.Error(t, mon.err)
	assert.Equal(t, map[string]string{"module": "journal", "backend": "sqlite"}, mon.tags)

	mon.err = nil
	Capture("journal", nil)
	CaptureException(nil, nil)
	assert.Nil(t, mon.err)
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	defer Init(NopMonitor{})

	assert.PanicsWithValue(t, "boom", func() {
		defer Recover()
		panic("boom")
	})
	assert.Equal(t, []any{"boom"}, mon.panics)
	assert.True(t, mon.flushed)
}

func TestInitIgnoresNil(t *testing.T) {
	Init(nil)
	assert.IsType(t, NopMonitor{}, get())
	assert.EqualError(t, PanicError("x"), "panic: x")
}
