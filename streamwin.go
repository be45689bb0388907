/*
 * Copyright 2025 The StreamWin Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package streamwin is a windowed aggregation engine for event time
// streams. Records are assigned event timestamps, mapped into tumbling,
// sliding, session or global windows, grouped by key and folded with a
// combine function; results are emitted when the watermark passes the
// window end or a count trigger fires.
//
// Usage:
//
//	sw, err := streamwin.New(
//		streamwin.WithTumblingWindow(time.Minute),
//		streamwin.WithTimestampField("ts", time.Millisecond),
//		streamwin.WithGroupBy("device"),
//		streamwin.WithAggregation("temperature", aggregator.Avg, "avg_temp"),
//	)
//	sw.Emit(map[string]interface{}{"device": "d1", "ts": int64(1700000000000), "temperature": 21.5})
//	sw.AdvanceWatermark(time.UnixMilli(1700000060000))
//	batch := <-sw.Results()
package streamwin

import (
	"time"

	"github.com/streamwin/streamwin/engine"
	"github.com/streamwin/streamwin/eventtime"
	"github.com/streamwin/streamwin/types"
)

// Streamwin is the top level handle over a windowed aggregation pipeline.
type Streamwin struct {
	engine *engine.Engine
}

// New builds a pipeline from the given options. Configuration errors
// (unknown window type, bad durations, uncompilable filter or timestamp
// expression, missing timestamp source) surface here, before any record
// is processed.
func New(options ...Option) (*Streamwin, error) {
	b := &builder{config: types.NewConfig()}
	for _, option := range options {
		option(b)
	}
	if b.err != nil {
		return nil, b.err
	}

	eng, err := engine.New(b.config, b.extractor)
	if err != nil {
		return nil, err
	}
	eng.Start()
	return &Streamwin{engine: eng}, nil
}

// Emit runs one record through the pipeline. The error reports a malformed
// record (no usable event timestamp) or an engine already stopped; the
// caller decides whether to drop the record or halt.
func (s *Streamwin) Emit(data map[string]interface{}) error {
	return s.engine.Process(data)
}

// AdvanceWatermark declares that no record with an event time below t is
// still expected, firing and closing every window the new position has
// passed. Attempting to move the watermark backward returns
// window.ErrWatermarkRegression.
func (s *Streamwin) AdvanceWatermark(t time.Time) error {
	return s.engine.AdvanceWatermark(t)
}

// Watermark returns the current watermark position.
func (s *Streamwin) Watermark() time.Time {
	return s.engine.Watermark()
}

// Results returns the channel of emitted result batches. Closed by Stop.
func (s *Streamwin) Results() <-chan []map[string]interface{} {
	return s.engine.Results()
}

// AddSink registers a callback receiving every emitted batch.
func (s *Streamwin) AddSink(sink func([]map[string]interface{})) {
	s.engine.AddSink(sink)
}

// Stats returns processing counters: input, filtered, emitted, late
// dropped, result channel sent/dropped and open pane count.
func (s *Streamwin) Stats() map[string]int64 {
	return s.engine.Stats()
}

// Stop halts the pipeline. Firings already emitted stay intact; pane
// state that never fired is discarded, not flushed.
func (s *Streamwin) Stop() {
	s.engine.Stop()
}

// builder accumulates option state before engine construction.
type builder struct {
	config    types.Config
	extractor eventtime.Extractor
	err       error
}
