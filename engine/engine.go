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

package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"

	"github.com/streamwin/streamwin/aggregator"
	"github.com/streamwin/streamwin/condition"
	"github.com/streamwin/streamwin/eventtime"
	"github.com/streamwin/streamwin/logger"
	"github.com/streamwin/streamwin/types"
	"github.com/streamwin/streamwin/utils/cast"
	"github.com/streamwin/streamwin/window"
)

// ErrStopped reports that the engine no longer accepts records.
var ErrStopped = errors.New("engine stopped")

// defaultKey groups all records when no group fields are configured.
const defaultKey = "default"

// Engine is the windowed aggregation pipeline: it assigns event times,
// maps records into window slots, folds them into per window-key panes and
// emits results when the trigger fires.
//
// All pane and session state is guarded by a single mutex, so updates to
// any one accumulator are serialized and session merge decisions always
// see a consistent view of a key's open sessions. Result delivery happens
// outside the lock and never blocks: sinks run on their own goroutine and
// channel sends are non-blocking with a dropped counter.
type Engine struct {
	config types.Config

	mu        sync.Mutex
	panes     map[paneID]*pane
	assigner  window.Assigner
	sessions  *window.SessionTracker
	watermark *window.Watermark
	stopped   bool

	filter    condition.Condition
	extractor eventtime.Extractor
	trigger   Trigger
	protos    map[string]aggregator.AggregatorFunction

	resultChan chan []map[string]interface{}
	sinks      []func([]map[string]interface{})
	sinksMu    sync.RWMutex
	distinct   *lru.Cache[string, struct{}]

	ctx    context.Context
	cancel context.CancelFunc

	inputCount    atomic.Int64
	filteredCount atomic.Int64
	emittedCount  atomic.Int64
	lateDropped   atomic.Int64
	resultSent    atomic.Int64
	resultDropped atomic.Int64
}

// New validates the configuration and builds an engine. The extractor may
// be nil, in which case the window config's TsProp field names the record
// field carrying the event time; having neither is an error, the engine
// never falls back to the wall clock.
func New(config types.Config, extractor eventtime.Extractor) (*Engine, error) {
	if len(config.Aggregations) == 0 {
		return nil, fmt.Errorf("at least one aggregation is required")
	}
	for i := range config.Aggregations {
		if config.Aggregations[i].OutputAlias == "" {
			config.Aggregations[i].OutputAlias = config.Aggregations[i].InputField
		}
	}

	protos := make(map[string]aggregator.AggregatorFunction, len(config.Aggregations))
	for _, af := range config.Aggregations {
		proto, err := aggregator.NewAggregator(af.AggregateType)
		if err != nil {
			return nil, err
		}
		protos[af.OutputAlias] = proto
	}

	trigger, err := CreateTrigger(config.Trigger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:  config,
		panes:   make(map[paneID]*pane),
		trigger: trigger,
		protos:  protos,
	}

	switch config.WindowConfig.Type {
	case window.TypeSession:
		gap, err := cast.ToDurationE(config.WindowConfig.Params["gap"])
		if err != nil || gap <= 0 {
			return nil, fmt.Errorf("session window requires a positive %q parameter", "gap")
		}
		tracker, err := window.NewSessionTracker(gap)
		if err != nil {
			return nil, err
		}
		e.sessions = tracker
	default:
		assigner, err := window.CreateAssigner(config.WindowConfig)
		if err != nil {
			return nil, err
		}
		e.assigner = assigner
	}

	if config.Where != "" {
		filter, err := condition.NewExprCondition(config.Where)
		if err != nil {
			return nil, fmt.Errorf("compile filter error: %w", err)
		}
		e.filter = filter
	}

	if extractor == nil {
		if config.WindowConfig.TsProp == "" {
			return nil, fmt.Errorf("%w: configure a timestamp field or extractor", eventtime.ErrNoTimestamp)
		}
		extractor = eventtime.NewFieldExtractor(config.WindowConfig.TsProp, config.WindowConfig.TimeUnit)
	}
	e.extractor = extractor

	perf := config.PerformanceConfig
	if perf.ResultChannelSize <= 0 {
		perf = types.DefaultPerformanceConfig()
	}
	e.resultChan = make(chan []map[string]interface{}, perf.ResultChannelSize)

	if config.Distinct {
		cache, err := lru.New[string, struct{}](perf.DistinctCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create distinct cache: %w", err)
		}
		e.distinct = cache
	}

	e.watermark = window.NewWatermark(config.MaxOutOfOrderness, config.IdleTimeout)
	e.ctx, e.cancel = context.WithCancel(context.Background())

	logger.Debug("engine created: window=%s trigger=%s mode=%s",
		config.WindowConfig.Type, config.Trigger.Type, config.AccumulationMode)
	return e, nil
}

// Start launches the automatic watermark refresh loop when enabled. With
// manual watermarks it is a no-op.
func (e *Engine) Start() {
	if !e.config.AutoWatermark {
		return
	}
	interval := e.config.WatermarkInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.handleWatermark(e.watermark.Refresh())
			case <-e.ctx.Done():
				return
			}
		}
	}()
}

// Process runs one record through the pipeline. A timestamp extraction
// failure is returned to the caller, who decides whether to drop or halt;
// the record is not admitted with a substitute timestamp.
func (e *Engine) Process(data map[string]interface{}) error {
	if data == nil {
		return fmt.Errorf("record cannot be nil")
	}
	e.inputCount.Inc()

	if e.filter != nil && !e.filter.Evaluate(data) {
		e.filteredCount.Inc()
		return nil
	}

	ts, err := e.extractor.Extract(data)
	if err != nil {
		return fmt.Errorf("assign timestamp: %w", err)
	}
	e.watermark.ObserveEventTime(ts)

	row := types.Row{Data: data, Timestamp: ts}
	key, groupValues := e.groupKey(data)

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	wm := e.watermark.Current()
	var fired []map[string]interface{}
	if e.sessions != nil {
		fired = e.processSession(row, key, groupValues, wm)
	} else {
		fired = e.processAligned(row, key, groupValues, wm)
	}
	e.mu.Unlock()

	e.deliver(fired)
	return nil
}

// processAligned folds a record into every tumbling/sliding/global slot
// containing its timestamp. Caller holds e.mu.
func (e *Engine) processAligned(row types.Row, key string, groupValues map[string]interface{}, wm time.Time) []map[string]interface{} {
	var fired []map[string]interface{}
	for _, slot := range e.assigner.AssignSlots(row.Timestamp) {
		if e.slotClosed(slot, wm) {
			e.lateDropped.Inc()
			logger.Debug("late record dropped: ts=%v window_end=%v", row.Timestamp, *slot.End)
			continue
		}
		id := paneID{id: slot.Hash(), key: key}
		p, ok := e.panes[id]
		if !ok {
			p = e.newPane(slot, key, groupValues)
			e.panes[id] = p
		}
		e.foldInto(p.accs, row.Data)
		p.sinceFire++

		if e.trigger.OnElement(p.sinceFire) {
			fired = append(fired, e.fire(p))
		} else if e.trigger.OnWatermark() && p.firings > 0 && !wm.Before(*slot.End) {
			// Late but within lateness: restate the pane immediately.
			fired = append(fired, e.fire(p))
		}
	}
	return fired
}

// processSession routes a record through the session tracker, migrating
// the panes of any sessions the record just merged. Caller holds e.mu.
func (e *Engine) processSession(row types.Row, key string, groupValues map[string]interface{}, wm time.Time) []map[string]interface{} {
	// The session a record opens ends at ts+gap; once the watermark is
	// past that plus lateness the record could never fire.
	horizon := row.Timestamp.Add(e.sessions.Gap()).Add(e.config.AllowedLateness)
	if !wm.IsZero() && !wm.Before(horizon) {
		e.lateDropped.Inc()
		logger.Debug("late record dropped: ts=%v session horizon=%v", row.Timestamp, horizon)
		return nil
	}

	sess, absorbed := e.sessions.Observe(key, row.Timestamp)
	id := paneID{id: sess.ID, key: key}
	p, ok := e.panes[id]
	if !ok {
		p = e.newSessionPane(sess.Slot, sess.ID, key, groupValues)
		e.panes[id] = p
	}
	for _, absorbedID := range absorbed {
		oldID := paneID{id: absorbedID, key: key}
		if old, exists := e.panes[oldID]; exists {
			p.rows = append(p.rows, old.rows...)
			p.sinceFire += old.sinceFire
			if old.firings > p.firings {
				p.firings = old.firings
			}
			delete(e.panes, oldID)
		}
	}

	p.rows = append(p.rows, row)
	p.sinceFire++

	var fired []map[string]interface{}
	if e.trigger.OnElement(p.sinceFire) {
		fired = append(fired, e.fire(p))
	} else if e.trigger.OnWatermark() && p.firings > 0 && !wm.Before(*p.slot.End) {
		fired = append(fired, e.fire(p))
	}
	return fired
}

// AdvanceWatermark publishes a new watermark position and fires or closes
// every pane the new position has passed. Moving backward is refused with
// ErrWatermarkRegression.
func (e *Engine) AdvanceWatermark(t time.Time) error {
	if err := e.watermark.Advance(t); err != nil {
		logger.Error("watermark advance refused: %v", err)
		return err
	}
	e.handleWatermark(t)
	return nil
}

// Watermark returns the current watermark position.
func (e *Engine) Watermark() time.Time {
	return e.watermark.Current()
}

func (e *Engine) handleWatermark(wm time.Time) {
	if wm.IsZero() {
		return
	}
	var due []*pane
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	var fired []map[string]interface{}
	for id, p := range e.panes {
		if wm.Before(*p.slot.End) {
			continue
		}
		due = append(due, p)
		if !wm.Before(p.slot.End.Add(e.config.AllowedLateness)) {
			delete(e.panes, id)
			if e.sessions != nil {
				e.sessions.Remove(p.key, p.sessionID)
			}
		}
	}
	// Deterministic emission order: by window start, then key.
	sort.Slice(due, func(i, j int) bool {
		if !due[i].slot.Start.Equal(*due[j].slot.Start) {
			return due[i].slot.Start.Before(*due[j].slot.Start)
		}
		return due[i].key < due[j].key
	})
	for _, p := range due {
		if e.trigger.OnWatermark() && (p.sinceFire > 0 || p.firings == 0) {
			fired = append(fired, e.fire(p))
		}
	}
	e.mu.Unlock()

	e.deliver(fired)
}

// fire emits one result row for a pane and applies the accumulation mode.
// Caller holds e.mu.
func (e *Engine) fire(p *pane) map[string]interface{} {
	result := make(map[string]interface{}, len(p.groupValues)+len(e.config.Aggregations)+2)
	for field, value := range p.groupValues {
		result[field] = value
	}
	result[types.WindowStartField] = *p.slot.Start
	result[types.WindowEndField] = *p.slot.End

	accs := p.accs
	if accs == nil {
		// Session panes aggregate lazily from their retained rows.
		accs = e.newAccumulators()
		for _, r := range p.rows {
			e.foldInto(accs, r.Data)
		}
	}
	for _, af := range e.config.Aggregations {
		result[af.OutputAlias] = accs[af.OutputAlias].Result()
	}

	p.firings++
	p.sinceFire = 0
	if e.config.AccumulationMode == types.Discarding {
		if p.accs != nil {
			p.accs = e.newAccumulators()
		}
		p.rows = nil
	}
	return result
}

// deliver hands a batch of result rows to sinks and the result channel.
// Never blocks: a full channel drops the batch and counts it.
func (e *Engine) deliver(results []map[string]interface{}) {
	if len(results) == 0 {
		return
	}
	if e.distinct != nil {
		kept := results[:0]
		for _, r := range results {
			fp := fingerprint(r)
			if _, seen := e.distinct.Get(fp); seen {
				continue
			}
			e.distinct.Add(fp, struct{}{})
			kept = append(kept, r)
		}
		results = kept
		if len(results) == 0 {
			return
		}
	}
	e.emittedCount.Add(int64(len(results)))

	e.sinksMu.RLock()
	sinks := make([]func([]map[string]interface{}), len(e.sinks))
	copy(sinks, e.sinks)
	e.sinksMu.RUnlock()
	for _, sink := range sinks {
		go sink(results)
	}

	e.mu.Lock()
	if !e.stopped {
		select {
		case e.resultChan <- results:
			e.resultSent.Inc()
		default:
			e.resultDropped.Inc()
		}
	}
	e.mu.Unlock()
}

// groupKey builds the composite key from the configured group fields and
// returns the raw values for result rows. Records missing a group field
// contribute an empty component, mirroring how sparse records group
// together.
func (e *Engine) groupKey(data map[string]interface{}) (string, map[string]interface{}) {
	if len(e.config.GroupFields) == 0 {
		return defaultKey, map[string]interface{}{}
	}
	parts := make([]string, 0, len(e.config.GroupFields))
	values := make(map[string]interface{}, len(e.config.GroupFields))
	for _, field := range e.config.GroupFields {
		v := data[field]
		values[field] = v
		parts = append(parts, cast.ToString(v))
	}
	return strings.Join(parts, "|"), values
}

// slotClosed reports whether a window can no longer accept data: the
// watermark has passed its end plus the allowed lateness.
func (e *Engine) slotClosed(slot *types.TimeSlot, wm time.Time) bool {
	if wm.IsZero() {
		return false
	}
	return !wm.Before(slot.End.Add(e.config.AllowedLateness))
}

// Results returns the channel carrying emitted result batches. The
// channel is closed by Stop.
func (e *Engine) Results() <-chan []map[string]interface{} {
	return e.resultChan
}

// AddSink registers a callback invoked with every emitted batch. Sinks run
// on their own goroutine and must tolerate concurrent invocations.
func (e *Engine) AddSink(sink func([]map[string]interface{})) {
	e.sinksMu.Lock()
	defer e.sinksMu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// Stats returns processing counters.
func (e *Engine) Stats() map[string]int64 {
	e.mu.Lock()
	openPanes := int64(len(e.panes))
	e.mu.Unlock()
	return map[string]int64{
		"inputCount":    e.inputCount.Load(),
		"filteredCount": e.filteredCount.Load(),
		"emittedCount":  e.emittedCount.Load(),
		"lateDropped":   e.lateDropped.Load(),
		"resultSent":    e.resultSent.Load(),
		"resultDropped": e.resultDropped.Load(),
		"openPanes":     openPanes,
	}
}

// Stop halts the engine. Already-emitted firings stay intact; unflushed
// pane state is discarded without a final emission.
func (e *Engine) Stop() {
	e.cancel()
	e.mu.Lock()
	if !e.stopped {
		e.stopped = true
		e.panes = make(map[paneID]*pane)
		close(e.resultChan)
	}
	e.mu.Unlock()
	logger.Debug("engine stopped")
}

// fingerprint renders a result row into a stable string for distinct
// suppression.
func fingerprint(result map[string]interface{}) string {
	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(cast.ToString(result[k]))
		b.WriteByte(';')
	}
	return b.String()
}
