package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/config"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/factory"
	coremetrics "github.com/kilianp07/loadchange/core/metrics"
	coremqtt "github.com/kilianp07/loadchange/core/mqtt"
)

type fakePublisher struct {
	mu     sync.Mutex
	alarms []string
	plans  []coremqtt.PlanMessage
}

func (f *fakePublisher) Notify(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alarms = append(f.alarms, text)
	return nil
}

func (f *fakePublisher) PublishPlan(msg coremqtt.PlanMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, msg)
	return nil
}

func (f *fakePublisher) Disconnect() {}

func (f *fakePublisher) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alarms), len(f.plans)
}

type countingSink struct {
	coremetrics.NopSink
	mu       sync.Mutex
	commands int
}

func (c *countingSink) RecordCommand(coremetrics.CommandEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands++
	return nil
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commands
}

type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Journal.Backend = "none"
	cfg.Session.TickInterval = 5 * time.Millisecond
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceForwardsPlansAndAlarms(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &movableClock{t: start}
	pub := &fakePublisher{}
	sink := &countingSink{}
	svc, err := New(testConfig(t), WithClock(clock), WithPublisher(pub), WithSink(sink))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// Run subscribes asynchronously; retry the mutation until it is observed.
	require.Eventually(t, func() bool {
		_, _ = svc.Session.Enter(ctx, engine.EnterRequest{StartMW: 400, TargetMW: 500, At: start})
		_, plans := pub.counts()
		return plans > 0
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		_, _ = svc.Session.Append(ctx, engine.AppendRequest{TargetMW: 480, At: start.Add(time.Hour)})
		return sink.count() > 0
	}, 2*time.Second, 20*time.Millisecond)

	clock.Set(start.Add(3 * time.Minute))
	require.Eventually(t, func() bool {
		alarms, _ := pub.counts()
		return alarms > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNewRejectsUnknownSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = append(cfg.Metrics.Sinks, factory.ModuleConfig{Type: "missing"})
	_, err := New(cfg)
	assert.Error(t, err)
}
