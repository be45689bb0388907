package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkAdvance(t *testing.T) {
	wm := NewWatermark(0, 0)
	assert.True(t, wm.Current().IsZero())

	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	require.NoError(t, wm.Advance(t1))
	assert.True(t, wm.Current().Equal(t1))

	// Re-advancing to the same instant is a no-op, not a regression.
	require.NoError(t, wm.Advance(t1))

	t2 := t1.Add(time.Minute)
	require.NoError(t, wm.Advance(t2))
	assert.True(t, wm.Current().Equal(t2))
}

func TestWatermarkRegression(t *testing.T) {
	wm := NewWatermark(0, 0)
	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	require.NoError(t, wm.Advance(t1))

	err := wm.Advance(t1.Add(-time.Second))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWatermarkRegression))
	assert.True(t, wm.Current().Equal(t1), "failed advance leaves the watermark untouched")
}

func TestWatermarkIsLate(t *testing.T) {
	wm := NewWatermark(0, 0)
	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)

	assert.False(t, wm.IsLate(t1.Add(-time.Hour)), "nothing is late before the first advance")

	require.NoError(t, wm.Advance(t1))
	assert.True(t, wm.IsLate(t1.Add(-time.Second)))
	assert.False(t, wm.IsLate(t1), "at the watermark is not late")
	assert.False(t, wm.IsLate(t1.Add(time.Second)))
}

func TestWatermarkRefreshDerivation(t *testing.T) {
	wm := NewWatermark(10*time.Second, 0)

	assert.True(t, wm.Refresh().IsZero(), "no events observed yet")

	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	wm.ObserveEventTime(t1)
	assert.True(t, wm.Current().IsZero(), "observation alone never publishes")

	got := wm.Refresh()
	assert.True(t, got.Equal(t1.Add(-10*time.Second)), "max event time minus out-of-orderness")

	// An older event must not pull the derivation backward.
	wm.ObserveEventTime(t1.Add(-time.Hour))
	assert.True(t, wm.Refresh().Equal(got))

	wm.ObserveEventTime(t1.Add(time.Minute))
	assert.True(t, wm.Refresh().Equal(t1.Add(time.Minute).Add(-10*time.Second)))
}

func TestWatermarkRefreshNeverRegresses(t *testing.T) {
	wm := NewWatermark(time.Minute, 0)

	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	require.NoError(t, wm.Advance(t1))

	// Derived candidate is behind the explicitly advanced value.
	wm.ObserveEventTime(t1.Add(time.Second))
	assert.True(t, wm.Refresh().Equal(t1))
}

func TestWatermarkIdleTimeout(t *testing.T) {
	wm := NewWatermark(0, time.Millisecond)

	t1 := time.Date(2025, 1, 1, 1, 0, 0, 0, time.UTC)
	wm.ObserveEventTime(t1)

	// After the idle timeout the derivation switches to processing time so
	// stalled sources still let windows close.
	time.Sleep(5 * time.Millisecond)
	got := wm.Refresh()
	assert.True(t, got.After(t1), "idle refresh moves past the stale event time")
}
