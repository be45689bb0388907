package types

import (
	"time"

	"github.com/streamwin/streamwin/aggregator"
)

// Config is the full pipeline configuration assembled by the top level
// options and consumed by the engine.
type Config struct {
	// WindowConfig selects and parameterizes the windowing strategy.
	WindowConfig WindowConfig
	// Trigger decides when window-key panes emit results.
	Trigger TriggerConfig
	// AccumulationMode selects cumulative or incremental firings.
	AccumulationMode AccumulationMode
	// GroupFields are the record fields forming the aggregation key.
	GroupFields []string
	// Aggregations lists the per-key combine functions to maintain.
	Aggregations []aggregator.AggregationField
	// Where is an optional filter expression applied before any
	// window processing.
	Where string
	// Distinct suppresses result rows already emitted with identical
	// content.
	Distinct bool

	// AllowedLateness keeps a pane open for late data after the
	// watermark passes the window end. Zero closes panes immediately.
	AllowedLateness time.Duration

	// AutoWatermark enables deriving the watermark from observed event
	// times instead of explicit AdvanceWatermark calls.
	AutoWatermark bool
	// MaxOutOfOrderness bounds how far event times may arrive out of
	// order when AutoWatermark is enabled.
	MaxOutOfOrderness time.Duration
	// WatermarkInterval is the period of the automatic watermark
	// refresh loop.
	WatermarkInterval time.Duration
	// IdleTimeout advances the watermark from processing time when no
	// data arrives for this long. Zero disables the idle mechanism.
	IdleTimeout time.Duration

	// PerformanceConfig sizes channels and internal caches.
	PerformanceConfig PerformanceConfig
}

// WindowConfig parameterizes a windowing strategy. Params carries the
// strategy-specific durations under the keys "size", "slide" and "gap",
// converted with utils/cast so strings like "60s" work.
type WindowConfig struct {
	Type     string
	Params   map[string]interface{}
	TsProp   string
	TimeUnit time.Duration
}

// TriggerConfig selects the trigger policy. Count is the element threshold
// for TriggerCount and TriggerAny.
type TriggerConfig struct {
	Type  string
	Count int
}

// PerformanceConfig holds buffer and cache sizing.
type PerformanceConfig struct {
	ResultChannelSize int
	DistinctCacheSize int
}

// NewConfig creates a config with default trigger, accumulation mode and
// performance settings.
func NewConfig() Config {
	return Config{
		Trigger:           TriggerConfig{Type: TriggerWatermark},
		AccumulationMode:  Accumulating,
		WatermarkInterval: 200 * time.Millisecond,
		PerformanceConfig: DefaultPerformanceConfig(),
	}
}

// DefaultPerformanceConfig returns the standard sizing.
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		ResultChannelSize: 1000,
		DistinctCacheSize: 10000,
	}
}

// HighPerformanceConfig trades memory for throughput.
func HighPerformanceConfig() PerformanceConfig {
	config := DefaultPerformanceConfig()
	config.ResultChannelSize = 10000
	config.DistinctCacheSize = 100000
	return config
}

// LowLatencyConfig keeps buffers small so results surface quickly.
func LowLatencyConfig() PerformanceConfig {
	config := DefaultPerformanceConfig()
	config.ResultChannelSize = 100
	config.DistinctCacheSize = 1000
	return config
}
