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

package streamwin

import (
	"time"

	"github.com/streamwin/streamwin/aggregator"
	"github.com/streamwin/streamwin/eventtime"
	"github.com/streamwin/streamwin/logger"
	"github.com/streamwin/streamwin/types"
	"github.com/streamwin/streamwin/window"
)

// Option configures a pipeline at construction time.
type Option func(*builder)

// WithTumblingWindow selects fixed, epoch aligned, non overlapping windows
// of the given size.
func WithTumblingWindow(size time.Duration) Option {
	return func(b *builder) {
		b.config.WindowConfig.Type = window.TypeTumbling
		b.config.WindowConfig.Params = map[string]interface{}{"size": size}
	}
}

// WithSlidingWindow selects overlapping windows of the given size starting
// every slide interval.
func WithSlidingWindow(size, slide time.Duration) Option {
	return func(b *builder) {
		b.config.WindowConfig.Type = window.TypeSliding
		b.config.WindowConfig.Params = map[string]interface{}{"size": size, "slide": slide}
	}
}

// WithSessionWindow selects per key session windows merged while record
// gaps stay within gap.
func WithSessionWindow(gap time.Duration) Option {
	return func(b *builder) {
		b.config.WindowConfig.Type = window.TypeSession
		b.config.WindowConfig.Params = map[string]interface{}{"gap": gap}
	}
}

// WithGlobalWindow selects the single window spanning all time. Pair it
// with WithCountTrigger, the watermark never closes a global window.
func WithGlobalWindow() Option {
	return func(b *builder) {
		b.config.WindowConfig.Type = window.TypeGlobal
	}
}

// WithGroupBy sets the record fields forming the aggregation key.
func WithGroupBy(fields ...string) Option {
	return func(b *builder) {
		b.config.GroupFields = fields
	}
}

// WithAggregation adds a combine function over an input field. The alias
// names the value in result rows; pass "*" as the field for count(*).
func WithAggregation(field string, aggType aggregator.AggregateType, alias string) Option {
	return func(b *builder) {
		b.config.Aggregations = append(b.config.Aggregations, aggregator.AggregationField{
			InputField:    field,
			AggregateType: aggType,
			OutputAlias:   alias,
		})
	}
}

// WithTimestampField reads the event time from a record field. Numeric
// values are epoch offsets in the given unit, e.g. time.Millisecond.
func WithTimestampField(field string, unit time.Duration) Option {
	return func(b *builder) {
		b.config.WindowConfig.TsProp = field
		b.config.WindowConfig.TimeUnit = unit
	}
}

// WithTimestampExtractor supplies a custom timestamp extraction function.
func WithTimestampExtractor(fn func(data map[string]interface{}) (time.Time, error)) Option {
	return func(b *builder) {
		b.extractor = eventtime.ExtractorFunc(fn)
	}
}

// WithTimestampExpression computes the event time with an expr-lang
// expression over the record, e.g. "meta.created_at".
func WithTimestampExpression(expression string, unit time.Duration) Option {
	return func(b *builder) {
		extractor, err := eventtime.NewExprExtractor(expression, unit)
		if err != nil {
			b.err = err
			return
		}
		b.extractor = extractor
	}
}

// WithFilter drops records for which the expression is not true, before
// any window processing.
func WithFilter(expression string) Option {
	return func(b *builder) {
		b.config.Where = expression
	}
}

// WithCountTrigger fires a pane after every n records.
func WithCountTrigger(n int) Option {
	return func(b *builder) {
		b.config.Trigger = types.TriggerConfig{Type: types.TriggerCount, Count: n}
	}
}

// WithWatermarkTrigger fires a pane once the watermark passes the window
// end. This is the default.
func WithWatermarkTrigger() Option {
	return func(b *builder) {
		b.config.Trigger = types.TriggerConfig{Type: types.TriggerWatermark}
	}
}

// WithAnyTrigger fires on whichever comes first: n records or the
// watermark passing the window end.
func WithAnyTrigger(n int) Option {
	return func(b *builder) {
		b.config.Trigger = types.TriggerConfig{Type: types.TriggerAny, Count: n}
	}
}

// WithAccumulating makes every firing restate the full aggregate to date.
// This is the default.
func WithAccumulating() Option {
	return func(b *builder) {
		b.config.AccumulationMode = types.Accumulating
	}
}

// WithDiscarding makes every firing emit only the increment since the
// previous firing.
func WithDiscarding() Option {
	return func(b *builder) {
		b.config.AccumulationMode = types.Discarding
	}
}

// WithAllowedLateness keeps panes open for late data for d after the
// watermark passes their window end. Late records within the allowance
// refire the pane; beyond it they are dropped and counted.
func WithAllowedLateness(d time.Duration) Option {
	return func(b *builder) {
		b.config.AllowedLateness = d
	}
}

// WithAutoWatermark derives the watermark from observed event times minus
// maxOutOfOrderness, refreshed every interval. With idleTimeout non-zero
// the watermark keeps advancing from processing time when the source goes
// silent, so windows still close.
func WithAutoWatermark(maxOutOfOrderness, interval, idleTimeout time.Duration) Option {
	return func(b *builder) {
		b.config.AutoWatermark = true
		b.config.MaxOutOfOrderness = maxOutOfOrderness
		if interval > 0 {
			b.config.WatermarkInterval = interval
		}
		b.config.IdleTimeout = idleTimeout
	}
}

// WithDistinct suppresses result rows whose content was already emitted.
func WithDistinct() Option {
	return func(b *builder) {
		b.config.Distinct = true
	}
}

// WithHighPerformance applies larger buffers and caches.
func WithHighPerformance() Option {
	return func(b *builder) {
		b.config.PerformanceConfig = types.HighPerformanceConfig()
	}
}

// WithLowLatency applies small buffers so results surface quickly.
func WithLowLatency() Option {
	return func(b *builder) {
		b.config.PerformanceConfig = types.LowLatencyConfig()
	}
}

// WithLogLevel sets the level of the process-wide default logger.
func WithLogLevel(level logger.Level) Option {
	return func(b *builder) {
		logger.GetDefault().SetLevel(level)
	}
}

// WithDiscardLog silences the process-wide default logger.
func WithDiscardLog() Option {
	return func(b *builder) {
		logger.SetDefault(logger.NewDiscardLogger())
	}
}
