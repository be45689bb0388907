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

// Package engine wires timestamp assignment, window assignment and
// per-pane aggregation into a processing pipeline.
//
// One pane exists per (window, key) pair. Panes fire when the trigger
// policy says so: the default watermark trigger fires once the watermark
// passes the window end, the count trigger after every N records, and the
// any-of policy on whichever happens first. The accumulation mode decides
// whether a firing restates the full aggregate or only the increment since
// the previous firing.
//
// The watermark is threaded explicitly through AdvanceWatermark; it is
// monotonic, and a regression is a fatal consistency error surfaced as
// window.ErrWatermarkRegression, never silently accepted. Records whose
// windows the watermark has fully passed (end plus allowed lateness) are
// dropped and counted, not admitted.
//
// Stopping the engine discards unflushed pane state without a final
// flush: a window that never fired emits nothing.
package engine
