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
	"fmt"
	"math"
	"time"

	"github.com/streamwin/streamwin/types"
	"github.com/streamwin/streamwin/utils/cast"
	"github.com/streamwin/streamwin/utils/timex"
)

// Window type names. The strategy set is closed; CreateAssigner switches
// exhaustively over it.
const (
	TypeTumbling = "tumbling"
	TypeSliding  = "sliding"
	TypeSession  = "session"
	TypeGlobal   = "global"
)

// Assigner maps an event time to the set of window slots containing it.
// Assignment is a pure function of the timestamp for every strategy except
// sessions, which depend on the key's record history and live in
// SessionTracker instead.
type Assigner interface {
	AssignSlots(t time.Time) []*types.TimeSlot
	Type() string
}

// CreateAssigner builds the assigner for a window configuration.
// Session windows are stateful and have no pure assigner; callers detect
// TypeSession and use NewSessionTracker.
func CreateAssigner(config types.WindowConfig) (Assigner, error) {
	switch config.Type {
	case TypeTumbling:
		size, err := paramDuration(config, "size")
		if err != nil {
			return nil, err
		}
		return NewTumblingAssigner(size)
	case TypeSliding:
		size, err := paramDuration(config, "size")
		if err != nil {
			return nil, err
		}
		slide, err := paramDuration(config, "slide")
		if err != nil {
			return nil, err
		}
		return NewSlidingAssigner(size, slide)
	case TypeGlobal:
		return NewGlobalAssigner(), nil
	case TypeSession:
		return nil, fmt.Errorf("session windows are stateful, use NewSessionTracker")
	default:
		return nil, fmt.Errorf("unsupported window type: %s", config.Type)
	}
}

func paramDuration(config types.WindowConfig, name string) (time.Duration, error) {
	raw, ok := config.Params[name]
	if !ok {
		return 0, fmt.Errorf("%s window requires %q parameter", config.Type, name)
	}
	d, err := cast.ToDurationE(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %q for %s window: %v", name, config.Type, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%q for %s window must be positive, got %v", name, config.Type, d)
	}
	return d, nil
}

// TumblingAssigner produces non-overlapping windows of a fixed size whose
// boundaries are aligned to the Unix epoch, so every timestamp falls into
// exactly one window [floor(t/size)*size, floor(t/size)*size + size).
type TumblingAssigner struct {
	size time.Duration
}

func NewTumblingAssigner(size time.Duration) (*TumblingAssigner, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tumbling window size must be positive, got %v", size)
	}
	return &TumblingAssigner{size: size}, nil
}

func (ta *TumblingAssigner) AssignSlots(t time.Time) []*types.TimeSlot {
	start := timex.AlignTimeToWindow(t, ta.size)
	end := start.Add(ta.size)
	return []*types.TimeSlot{types.NewTimeSlot(&start, &end)}
}

func (ta *TumblingAssigner) Type() string { return TypeTumbling }

// SlidingAssigner produces windows of a fixed size starting every slide
// interval. A timestamp belongs to every window whose start s satisfies
// s <= t < s+size with s a multiple of slide, so ceil(size/slide) windows
// when slide divides size.
type SlidingAssigner struct {
	size  time.Duration
	slide time.Duration
}

func NewSlidingAssigner(size, slide time.Duration) (*SlidingAssigner, error) {
	if size <= 0 || slide <= 0 {
		return nil, fmt.Errorf("sliding window size and slide must be positive, got size=%v slide=%v", size, slide)
	}
	if slide > size {
		return nil, fmt.Errorf("sliding window slide %v must not exceed size %v", slide, size)
	}
	return &SlidingAssigner{size: size, slide: slide}, nil
}

// AssignSlots enumerates qualifying windows from the latest one backwards.
// The latest window starts at the highest slide multiple not after t; each
// earlier candidate shifts back by one slide until t falls off its end.
func (sa *SlidingAssigner) AssignSlots(t time.Time) []*types.TimeSlot {
	slots := make([]*types.TimeSlot, 0, int(sa.size/sa.slide)+1)

	start := timex.AlignTimeToWindow(t, sa.slide)
	end := start.Add(sa.size)

	for !start.After(t) && end.After(t) {
		s, e := start, end
		slots = append(slots, types.NewTimeSlot(&s, &e))
		start = start.Add(-sa.slide)
		end = end.Add(-sa.slide)
	}

	return slots
}

func (sa *SlidingAssigner) Type() string { return TypeSliding }

// GlobalAssigner maps every timestamp into the single window spanning all
// of representable time. Global windows never close on the watermark, so
// only count based triggers produce output for them.
type GlobalAssigner struct {
	slot *types.TimeSlot
}

func NewGlobalAssigner() *GlobalAssigner {
	start := time.Unix(0, 0).UTC()
	end := time.Unix(0, math.MaxInt64).UTC()
	return &GlobalAssigner{slot: types.NewTimeSlot(&start, &end)}
}

func (ga *GlobalAssigner) AssignSlots(_ time.Time) []*types.TimeSlot {
	return []*types.TimeSlot{ga.slot}
}

func (ga *GlobalAssigner) Type() string { return TypeGlobal }
