package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdash/internal/model"
	"devdash/internal/source"
	"devdash/internal/store"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(300*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	d.Trigger()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerSeparateBursts(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	d.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler("every now and then", time.UTC, func() {})
	assert.Error(t, err)
}

func TestSchedulerFires(t *testing.T) {
	var calls atomic.Int32
	s, err := NewScheduler("@every 1s", time.UTC, func() { calls.Add(1) })
	require.NoError(t, err)
	s.Start()
	defer s.Stop()
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func countingDashboard(calls *atomic.Int32) *Dashboard {
	return New([]Binding{{ID: "a", Adapter: source.AdapterFunc(func(context.Context, store.Settings) ([]model.Item, error) {
		calls.Add(1)
		return nil, nil
	})}}, store.NewMemStore(nil), Options{})
}

func TestRuntimeTriggers(t *testing.T) {
	var calls atomic.Int32
	rt, err := NewRuntime(context.Background(), countingDashboard(&calls), 50*time.Millisecond, "@every 1h", time.UTC)
	require.NoError(t, err)
	rt.Start()
	defer rt.Stop()

	// startup refresh plus a burst that lands inside the same quiet period
	rt.RequestRefresh()
	rt.SettingsChanged([]string{store.KeyGitHubOrg})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	rt.SettingsChanged([]string{store.KeyDemoMode})
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRuntimeRejectsBadSchedule(t *testing.T) {
	var calls atomic.Int32
	_, err := NewRuntime(context.Background(), countingDashboard(&calls), time.Millisecond, "nope", nil)
	assert.Error(t, err)
}

func TestRuntimeSkipsAfterCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := NewRuntime(ctx, countingDashboard(&calls), 20*time.Millisecond, "@every 1h", time.UTC)
	require.NoError(t, err)
	cancel()
	rt.Start()
	time.Sleep(80 * time.Millisecond)
	rt.Stop()
	assert.Zero(t, calls.Load())
}

func TestRuntimeStopWhileDebounceFires(t *testing.T) {
	for range 200 {
		var calls atomic.Int32
		rt, err := NewRuntime(context.Background(), countingDashboard(&calls), time.Microsecond, "@every 1h", time.UTC)
		require.NoError(t, err)
		rt.Start()
		rt.Stop()

		settled := calls.Load()
		time.Sleep(time.Millisecond)
		assert.Equal(t, settled, calls.Load())
	}
}

func TestRuntimeIgnoresRequestsAfterStop(t *testing.T) {
	var calls atomic.Int32
	rt, err := NewRuntime(context.Background(), countingDashboard(&calls), time.Millisecond, "@every 1h", time.UTC)
	require.NoError(t, err)
	rt.Stop()

	rt.RefreshNow(TriggerDemo)
	rt.RequestRefresh()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, calls.Load())
}
