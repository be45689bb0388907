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

package types

import (
	"time"
)

// Row is a record flowing through the pipeline: the raw data paired with
// its event time. The timestamp is immutable after assignment.
type Row struct {
	Data      map[string]interface{}
	Timestamp time.Time
}

// AccumulationMode controls what successive trigger firings for the same
// window-key pane emit.
type AccumulationMode string

const (
	// Accumulating restates the full aggregate on every firing.
	Accumulating AccumulationMode = "accumulating"
	// Discarding emits only the increment since the previous firing.
	Discarding AccumulationMode = "discarding"
)

// Trigger type names. The set is closed; CreateTrigger in the engine
// package switches exhaustively over it.
const (
	TriggerWatermark = "watermark"
	TriggerCount     = "count"
	TriggerAny       = "any"
)

// Result field names carrying window bounds in emitted rows.
const (
	WindowStartField = "window_start"
	WindowEndField   = "window_end"
)
