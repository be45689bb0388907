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
	"fmt"

	"github.com/streamwin/streamwin/types"
)

// Trigger decides when a window-key pane emits results. The policy set is
// closed: the default watermark trigger, a count trigger firing after
// every N records, and the any-of combination of both.
type Trigger interface {
	// OnElement reports whether the pane should fire after folding a
	// record, given the number of records since the last firing.
	OnElement(sinceFire int) bool
	// OnWatermark reports whether the pane should fire once the
	// watermark reaches the window end.
	OnWatermark() bool
}

type watermarkTrigger struct{}

func (watermarkTrigger) OnElement(int) bool { return false }
func (watermarkTrigger) OnWatermark() bool  { return true }

type countTrigger struct {
	threshold int
}

func (t countTrigger) OnElement(sinceFire int) bool { return sinceFire >= t.threshold }
func (countTrigger) OnWatermark() bool              { return false }

type anyTrigger struct {
	threshold int
}

func (t anyTrigger) OnElement(sinceFire int) bool { return sinceFire >= t.threshold }
func (anyTrigger) OnWatermark() bool              { return true }

// CreateTrigger builds the trigger for a configuration.
func CreateTrigger(config types.TriggerConfig) (Trigger, error) {
	switch config.Type {
	case types.TriggerWatermark, "":
		return watermarkTrigger{}, nil
	case types.TriggerCount:
		if config.Count <= 0 {
			return nil, fmt.Errorf("count trigger requires a positive count, got %d", config.Count)
		}
		return countTrigger{threshold: config.Count}, nil
	case types.TriggerAny:
		if config.Count <= 0 {
			return nil, fmt.Errorf("any trigger requires a positive count, got %d", config.Count)
		}
		return anyTrigger{threshold: config.Count}, nil
	default:
		return nil, fmt.Errorf("unsupported trigger type: %s", config.Type)
	}
}
