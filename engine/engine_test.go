package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamwin/streamwin/aggregator"
	"github.com/streamwin/streamwin/types"
	"github.com/streamwin/streamwin/window"
)

func at(h, m, s int) time.Time {
	return time.Date(2025, 1, 1, h, m, s, 0, time.UTC)
}

func tumblingConfig(size time.Duration) types.Config {
	config := types.NewConfig()
	config.WindowConfig = types.WindowConfig{
		Type:   window.TypeTumbling,
		Params: map[string]interface{}{"size": size},
		TsProp: "ts",
	}
	config.Aggregations = []aggregator.AggregationField{
		{InputField: "*", AggregateType: aggregator.Count, OutputAlias: "count"},
	}
	return config
}

func record(ts time.Time, fields map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{"ts": ts}
	for k, v := range fields {
		data[k] = v
	}
	return data
}

// recv reads one result batch or fails the test. Emission is synchronous
// with Process/AdvanceWatermark, so a short timeout suffices.
func recv(t *testing.T, e *Engine) []map[string]interface{} {
	t.Helper()
	select {
	case batch, ok := <-e.Results():
		require.True(t, ok, "result channel closed")
		return batch
	case <-time.After(time.Second):
		t.Fatal("no result batch")
		return nil
	}
}

func assertNoResult(t *testing.T, e *Engine) {
	t.Helper()
	select {
	case batch := <-e.Results():
		t.Fatalf("unexpected batch: %v", batch)
	default:
	}
}

func TestWatermarkFiresClosedWindows(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.Process(record(at(1, 1, 15), nil)))
	assertNoResult(t, e) // nothing fires before the watermark

	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 1)
	assert.Equal(t, 2.0, batch[0]["count"])
	assert.Equal(t, at(1, 1, 0), batch[0][types.WindowStartField])
	assert.Equal(t, at(1, 2, 0), batch[0][types.WindowEndField])
}

func TestEmptyWindowDoesNotFire(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.AdvanceWatermark(at(2, 0, 0)))
	assertNoResult(t, e)
	assert.Equal(t, int64(0), e.Stats()["emittedCount"])
}

func TestGroupByEmitsPerKey(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.GroupFields = []string{"item"}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), map[string]interface{}{"item": "corn"})))
	require.NoError(t, e.Process(record(at(1, 1, 15), map[string]interface{}{"item": "carrot"})))
	require.NoError(t, e.Process(record(at(1, 1, 16), map[string]interface{}{"item": "carrot"})))

	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 2)

	counts := map[string]float64{}
	for _, row := range batch {
		counts[row["item"].(string)] = row["count"].(float64)
	}
	assert.Equal(t, map[string]float64{"corn": 1, "carrot": 2}, counts)
}

func TestCountTriggerAccumulating(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Trigger = types.TriggerConfig{Type: types.TriggerCount, Count: 2}
	config.Aggregations = []aggregator.AggregationField{
		{InputField: "v", AggregateType: aggregator.Sum, OutputAlias: "total"},
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	for i, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, e.Process(record(at(1, 1, i), map[string]interface{}{"v": v})))
	}

	// Each firing restates the full window contents.
	first := recv(t, e)
	require.Len(t, first, 1)
	assert.Equal(t, 3.0, first[0]["total"])

	second := recv(t, e)
	require.Len(t, second, 1)
	assert.Equal(t, 10.0, second[0]["total"])
}

func TestCountTriggerDiscarding(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Trigger = types.TriggerConfig{Type: types.TriggerCount, Count: 2}
	config.AccumulationMode = types.Discarding
	config.Aggregations = []aggregator.AggregationField{
		{InputField: "v", AggregateType: aggregator.Sum, OutputAlias: "total"},
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	for i, v := range []float64{1, 2, 3, 4} {
		require.NoError(t, e.Process(record(at(1, 1, i), map[string]interface{}{"v": v})))
	}

	// Each firing carries only the delta since the previous one.
	assert.Equal(t, 3.0, recv(t, e)[0]["total"])
	assert.Equal(t, 7.0, recv(t, e)[0]["total"])
}

func TestLateRecordDropped(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))

	// Window [01:01, 01:02) closed with zero lateness.
	require.NoError(t, e.Process(record(at(1, 1, 30), nil)))
	assertNoResult(t, e)

	stats := e.Stats()
	assert.Equal(t, int64(1), stats["lateDropped"])
	assert.Equal(t, int64(0), stats["openPanes"], "late data must not resurrect a pane")
}

func TestAllowedLatenessRefires(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.AllowedLateness = 10 * time.Minute
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.Process(record(at(1, 1, 15), nil)))
	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))
	assert.Equal(t, 2.0, recv(t, e)[0]["count"])

	// Late but within lateness: the pane restates immediately.
	require.NoError(t, e.Process(record(at(1, 1, 30), nil)))
	assert.Equal(t, 3.0, recv(t, e)[0]["count"])

	// Past the lateness horizon the pane closes for good; a pane with no
	// new data since its last firing stays silent.
	require.NoError(t, e.AdvanceWatermark(at(1, 12, 0)))
	assertNoResult(t, e)
	assert.Equal(t, int64(0), e.Stats()["openPanes"])
}

func TestWatermarkRegressionRefused(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.AdvanceWatermark(at(1, 0, 0)))
	err = e.AdvanceWatermark(at(0, 59, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, window.ErrWatermarkRegression))
	assert.True(t, e.Watermark().Equal(at(1, 0, 0)))
}

func TestFilterRunsBeforeWindowing(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Where = "level == 'error'"
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), map[string]interface{}{"level": "error"})))
	require.NoError(t, e.Process(record(at(1, 1, 10), map[string]interface{}{"level": "info"})))

	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 1)
	assert.Equal(t, 1.0, batch[0]["count"])
	assert.Equal(t, int64(1), e.Stats()["filteredCount"])
}

func TestTimestampErrorReturned(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	err = e.Process(map[string]interface{}{"other": 1})
	require.Error(t, err, "record without a timestamp is rejected, not defaulted")
	assert.Equal(t, int64(0), e.Stats()["openPanes"])
}

func TestSlidingWindowMultipleAssignment(t *testing.T) {
	config := tumblingConfig(0)
	config.WindowConfig = types.WindowConfig{
		Type:   window.TypeSliding,
		Params: map[string]interface{}{"size": time.Minute, "slide": 30 * time.Second},
		TsProp: "ts",
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))

	batch := recv(t, e)
	require.Len(t, batch, 2, "record belongs to two overlapping windows")
	assert.Equal(t, at(1, 0, 30), batch[0][types.WindowStartField])
	assert.Equal(t, at(1, 1, 0), batch[1][types.WindowStartField])
	for _, row := range batch {
		assert.Equal(t, 1.0, row["count"])
	}
}

func TestSessionWindows(t *testing.T) {
	config := tumblingConfig(0)
	config.WindowConfig = types.WindowConfig{
		Type:   window.TypeSession,
		Params: map[string]interface{}{"gap": 5 * time.Minute},
		TsProp: "ts",
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.Process(record(at(1, 5, 0), nil)))
	require.NoError(t, e.Process(record(at(2, 34, 51), nil)))

	require.NoError(t, e.AdvanceWatermark(at(3, 0, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 2)

	assert.Equal(t, at(1, 1, 5), batch[0][types.WindowStartField])
	assert.Equal(t, at(1, 10, 0), batch[0][types.WindowEndField])
	assert.Equal(t, 2.0, batch[0]["count"])

	assert.Equal(t, at(2, 34, 51), batch[1][types.WindowStartField])
	assert.Equal(t, at(2, 39, 51), batch[1][types.WindowEndField])
	assert.Equal(t, 1.0, batch[1]["count"])
}

func TestSessionMergeCombinesPanes(t *testing.T) {
	config := tumblingConfig(0)
	config.WindowConfig = types.WindowConfig{
		Type:   window.TypeSession,
		Params: map[string]interface{}{"gap": 5 * time.Minute},
		TsProp: "ts",
	}
	config.Aggregations = []aggregator.AggregationField{
		{InputField: "v", AggregateType: aggregator.Sum, OutputAlias: "total"},
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	// Two disjoint sessions, then a bridging record fuses them.
	require.NoError(t, e.Process(record(at(1, 0, 0), map[string]interface{}{"v": 1.0})))
	require.NoError(t, e.Process(record(at(1, 12, 0), map[string]interface{}{"v": 2.0})))
	require.NoError(t, e.Process(record(at(1, 6, 0), map[string]interface{}{"v": 4.0})))

	require.NoError(t, e.AdvanceWatermark(at(2, 0, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 1, "merged session fires once")
	assert.Equal(t, 7.0, batch[0]["total"])
	assert.Equal(t, at(1, 0, 0), batch[0][types.WindowStartField])
	assert.Equal(t, at(1, 17, 0), batch[0][types.WindowEndField])
}

func TestSessionLateRecordHorizon(t *testing.T) {
	config := tumblingConfig(0)
	config.WindowConfig = types.WindowConfig{
		Type:   window.TypeSession,
		Params: map[string]interface{}{"gap": 5 * time.Minute},
		TsProp: "ts",
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 0, 0), nil)))
	require.NoError(t, e.Process(record(at(1, 4, 0), nil)))
	require.NoError(t, e.Process(record(at(1, 8, 0), nil)))
	require.NoError(t, e.AdvanceWatermark(at(1, 10, 0)))
	assertNoResult(t, e) // session stays open until 01:13

	// Lateness is judged against the record's own reach [t, t+gap): with
	// the watermark at 01:10, a record at 01:04:30 could no longer open or
	// extend anything on its own, so it is dropped even though the session
	// it would have joined is still open.
	require.NoError(t, e.Process(record(time.Date(2025, 1, 1, 1, 4, 30, 0, time.UTC), nil)))
	assert.Equal(t, int64(1), e.Stats()["lateDropped"])

	require.NoError(t, e.AdvanceWatermark(at(2, 0, 0)))
	batch := recv(t, e)
	require.Len(t, batch, 1)
	assert.Equal(t, 3.0, batch[0]["count"], "dropped record is not folded in")
}

func TestGlobalWindowWithCountTrigger(t *testing.T) {
	config := tumblingConfig(0)
	config.WindowConfig = types.WindowConfig{Type: window.TypeGlobal, TsProp: "ts"}
	config.Trigger = types.TriggerConfig{Type: types.TriggerCount, Count: 3}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	for i := 0; i < 7; i++ {
		require.NoError(t, e.Process(record(at(1, 0, i), nil)))
	}

	assert.Equal(t, 3.0, recv(t, e)[0]["count"])
	assert.Equal(t, 6.0, recv(t, e)[0]["count"])
	assertNoResult(t, e) // seventh record has not reached the threshold
}

func TestDistinctSuppressesDuplicateResults(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Trigger = types.TriggerConfig{Type: types.TriggerCount, Count: 1}
	config.AccumulationMode = types.Discarding
	config.Distinct = true
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	// Identical records produce identical discarding-mode firings; only
	// the first survives distinct suppression.
	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))

	assert.Equal(t, 1.0, recv(t, e)[0]["count"])
	assertNoResult(t, e)
	assert.Equal(t, int64(1), e.Stats()["emittedCount"])
}

func TestSinkReceivesBatches(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)
	defer e.Stop()

	got := make(chan []map[string]interface{}, 1)
	e.AddSink(func(batch []map[string]interface{}) {
		got <- batch
	})

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))

	select {
	case batch := <-got:
		require.Len(t, batch, 1)
		assert.Equal(t, 1.0, batch[0]["count"])
	case <-time.After(time.Second):
		t.Fatal("sink not invoked")
	}
}

func TestStopDiscardsOpenPanes(t *testing.T) {
	e, err := New(tumblingConfig(time.Minute), nil)
	require.NoError(t, err)

	require.NoError(t, e.Process(record(at(1, 1, 5), nil)))
	e.Stop()

	// No final flush: the channel closes without the pending pane firing.
	_, ok := <-e.Results()
	assert.False(t, ok)
	assert.ErrorIs(t, e.Process(record(at(1, 1, 6), nil)), ErrStopped)
	assert.Equal(t, int64(0), e.Stats()["emittedCount"])
}

func TestNewValidation(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Aggregations = nil
	_, err := New(config, nil)
	assert.Error(t, err, "at least one aggregation")

	config = tumblingConfig(time.Minute)
	config.WindowConfig.TsProp = ""
	_, err = New(config, nil)
	assert.Error(t, err, "no timestamp source configured")

	config = tumblingConfig(time.Minute)
	config.Where = "broken &&"
	_, err = New(config, nil)
	assert.Error(t, err)

	config = tumblingConfig(time.Minute)
	config.WindowConfig.Type = window.TypeSession
	config.WindowConfig.Params = map[string]interface{}{}
	_, err = New(config, nil)
	assert.Error(t, err, "session window needs a gap")
}

func TestDefaultAliasIsInputField(t *testing.T) {
	config := tumblingConfig(time.Minute)
	config.Aggregations = []aggregator.AggregationField{
		{InputField: "v", AggregateType: aggregator.Sum},
	}
	e, err := New(config, nil)
	require.NoError(t, err)
	defer e.Stop()

	require.NoError(t, e.Process(record(at(1, 1, 5), map[string]interface{}{"v": 2.5})))
	require.NoError(t, e.AdvanceWatermark(at(1, 2, 0)))
	batch := recv(t, e)
	assert.Equal(t, 2.5, batch[0]["v"])
}
