package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/loadchange/core/monitoring"
)

type transportMock struct {
	events []*sentry.Event
}

func (t *transportMock) Configure(sentry.ClientOptions)           {}
func (t *transportMock) SendEvent(e *sentry.Event)                { t.events = append(t.events, e) }
func (t *transportMock) Flush(time.Duration) bool                 { return true }
func (t *transportMock) FlushWithContext(context.Context) bool    { return true }
func (t *transportMock) Close()                                   {}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(Config{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorTagsEvents(t *testing.T) {
	tr := &transportMock{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "https://public@example.com/1", Transport: tr})
	require.NoError(t, err)
	m := &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}

	m.CaptureException(errors.New("energy failed"), map[string]string{"module": "energy"})
	m.CaptureException(nil, nil)
	require.Len(t, tr.events, 1)
	assert.Equal(t, "energy", tr.events[0].Tags["module"])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{TracesSampleRate: 0.5}.Validate())
	assert.Error(t, Config{TracesSampleRate: 2}.Validate())
}
