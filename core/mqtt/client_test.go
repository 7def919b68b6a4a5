package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadchange/core/engine"
)

func TestNewPlanMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s, err := engine.NewSession(engine.Options{Clock: engine.ClockFunc(func() time.Time { return at })})
	require.NoError(t, err)

	empty := NewPlanMessage(s.Snapshot(), at)
	assert.False(t, empty.HasPlan)
	assert.Nil(t, empty.Markers)

	snap, err := s.Enter(context.Background(), engine.EnterRequest{StartMW: 400, TargetMW: 500, At: at})
	require.NoError(t, err)
	msg := NewPlanMessage(snap, at)
	assert.True(t, msg.HasPlan)
	assert.Equal(t, "3 Puls", msg.Mode)
	assert.Equal(t, at.UnixMilli(), msg.Timestamp)
	assert.Equal(t, at.Add(2*time.Minute+12*time.Second), msg.Markers["429_reached"])
	assert.Equal(t, []string{"Increase Unit load to 500 MW"}, msg.CopyText)
	assert.Greater(t, msg.Summary.TotalMWh, 0.0)
}
