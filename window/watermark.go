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

package window

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrWatermarkRegression reports an attempt to move the watermark
// backward. The watermark is a monotonic promise that no data below it is
// still expected; going back would invalidate firings already emitted, so
// the engine refuses rather than silently accepting it.
var ErrWatermarkRegression = errors.New("watermark regression")

// Watermark tracks the engine's estimate of the point in event time below
// which no further data is expected.
//
// The value only moves through Advance (explicit, host supplied) or
// Refresh (derived from the maximum observed event time minus the allowed
// out-of-orderness). Both paths enforce monotonicity.
type Watermark struct {
	mu sync.RWMutex
	// current is the published watermark. Zero until first advanced.
	current time.Time
	// maxEventTime is the largest event time observed so far.
	maxEventTime time.Time
	// lastEventAt is the processing time of the last observed event,
	// used for idle source detection.
	lastEventAt time.Time

	maxOutOfOrderness time.Duration
	idleTimeout       time.Duration
}

// NewWatermark creates a watermark. maxOutOfOrderness bounds how far event
// times may arrive out of order when the watermark is derived with
// Refresh; idleTimeout, when non-zero, lets Refresh advance from
// processing time after the source has been silent that long.
func NewWatermark(maxOutOfOrderness, idleTimeout time.Duration) *Watermark {
	return &Watermark{
		maxOutOfOrderness: maxOutOfOrderness,
		idleTimeout:       idleTimeout,
	}
}

// Advance moves the watermark to t. Advancing to the current value is a
// no-op; moving backward returns ErrWatermarkRegression.
func (wm *Watermark) Advance(t time.Time) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if t.Before(wm.current) {
		return fmt.Errorf("%w: %v is before current watermark %v",
			ErrWatermarkRegression, t.Format(time.RFC3339Nano), wm.current.Format(time.RFC3339Nano))
	}
	wm.current = t
	return nil
}

// ObserveEventTime records an event time for derivation bookkeeping. It
// never publishes a new watermark by itself.
func (wm *Watermark) ObserveEventTime(t time.Time) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.lastEventAt = time.Now()
	if wm.maxEventTime.IsZero() || t.After(wm.maxEventTime) {
		wm.maxEventTime = t
	}
}

// Refresh derives a new watermark from the observed event times: the
// maximum event time minus the allowed out-of-orderness. When the source
// has been idle past the idle timeout the derivation switches to
// processing time so windows can still close. The result never regresses;
// Refresh returns the current (possibly unchanged) watermark.
func (wm *Watermark) Refresh() time.Time {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.maxEventTime.IsZero() {
		return wm.current
	}

	candidate := wm.maxEventTime.Add(-wm.maxOutOfOrderness)
	if wm.idleTimeout > 0 && !wm.lastEventAt.IsZero() &&
		time.Since(wm.lastEventAt) > wm.idleTimeout {
		candidate = time.Now().Add(-wm.maxOutOfOrderness)
	}

	if candidate.After(wm.current) {
		wm.current = candidate
	}
	return wm.current
}

// Current returns the published watermark.
func (wm *Watermark) Current() time.Time {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.current
}

// IsLate reports whether an event time is behind the watermark.
func (wm *Watermark) IsLate(t time.Time) bool {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return !wm.current.IsZero() && t.Before(wm.current)
}
