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

// Package aggregator implements the combine functions folded over each
// window-key pane.
//
// Builtins cover sum, count, avg, min, max, stddev and collect. Custom
// combine functions are installed process-wide with Register:
//
//	aggregator.Register("product", func() aggregator.AggregatorFunction {
//		return &productAggregator{value: 1}
//	})
//
// All builtins except collect coerce values to float64 via utils/cast and
// silently skip values with no numeric interpretation.
package aggregator
