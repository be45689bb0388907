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
	"github.com/streamwin/streamwin/aggregator"
	"github.com/streamwin/streamwin/types"
)

// paneID identifies one window-key accumulator. For aligned windows id is
// the slot hash; for session windows it is the tracker's stable session
// ID, which survives slot extensions and merges.
type paneID struct {
	id  uint64
	key string
}

// pane holds the aggregation state of one window-key pair.
//
// Aligned windows fold records into their accumulators on arrival. Session
// panes retain raw rows instead and aggregate on firing, because a merge
// has to combine the state of two panes and the combine functions only
// know how to fold single records.
//
// Lifecycle: created on the first record (OPEN), fires any number of times
// (EMITTING), removed once the watermark passes the window end plus the
// allowed lateness (CLOSED). A pane with zero firings emits nothing.
type pane struct {
	slot        *types.TimeSlot
	key         string
	sessionID   uint64
	groupValues map[string]interface{}

	accs map[string]aggregator.AggregatorFunction
	rows []types.Row

	// sinceFire counts records folded since the last firing, firings the
	// number of firings so far.
	sinceFire int
	firings   int
}

func (e *Engine) newPane(slot *types.TimeSlot, key string, groupValues map[string]interface{}) *pane {
	return &pane{
		slot:        slot,
		key:         key,
		groupValues: groupValues,
		accs:        e.newAccumulators(),
	}
}

func (e *Engine) newSessionPane(slot *types.TimeSlot, sessionID uint64, key string, groupValues map[string]interface{}) *pane {
	return &pane{
		slot:        slot,
		key:         key,
		sessionID:   sessionID,
		groupValues: groupValues,
	}
}

// newAccumulators clones a fresh accumulator per aggregation field from
// the prototypes validated at construction.
func (e *Engine) newAccumulators() map[string]aggregator.AggregatorFunction {
	accs := make(map[string]aggregator.AggregatorFunction, len(e.protos))
	for alias, proto := range e.protos {
		accs[alias] = proto.New()
	}
	return accs
}

// foldInto feeds one record into a set of accumulators.
func (e *Engine) foldInto(accs map[string]aggregator.AggregatorFunction, data map[string]interface{}) {
	for _, af := range e.config.Aggregations {
		acc, ok := accs[af.OutputAlias]
		if !ok {
			continue
		}
		if af.InputField == "*" {
			acc.Add(1)
			continue
		}
		value, ok := data[af.InputField]
		if !ok || value == nil {
			continue
		}
		acc.Add(value)
	}
}
