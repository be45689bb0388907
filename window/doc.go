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

// Package window implements window assignment and watermark tracking.
//
// Four strategies are supported:
//
//   - tumbling: fixed size, epoch aligned, non overlapping; every
//     timestamp falls into exactly one window
//   - sliding: fixed size starting every slide interval; a timestamp
//     falls into ceil(size/slide) overlapping windows
//   - session: per key, data dependent windows that extend and merge as
//     records arrive within the configured gap (SessionTracker)
//   - global: a single window spanning all time
//
// Tumbling, sliding and global assignment are pure functions of the event
// time exposed through the Assigner interface. Sessions depend on a key's
// record history and therefore live in the stateful SessionTracker.
//
// The Watermark type tracks event time progress. It is an explicit value
// the host threads through the engine, never ambient state, and it
// enforces monotonicity at the boundary.
package window
