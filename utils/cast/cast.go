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

// Package cast provides type conversion helpers used across the engine,
// backed by github.com/spf13/cast.
package cast

import (
	"time"

	"github.com/spf13/cast"
)

// ToFloat64E converts any numeric-like value to float64, returning an error
// for values that have no numeric interpretation.
func ToFloat64E(v interface{}) (float64, error) {
	return cast.ToFloat64E(v)
}

// ToDurationE converts a value such as "5s", a numeric nanosecond count or
// a time.Duration into a time.Duration.
func ToDurationE(v interface{}) (time.Duration, error) {
	return cast.ToDurationE(v)
}

// ToTimeE converts a value into time.Time. Strings are parsed with the
// formats supported by spf13/cast (RFC3339 among others).
func ToTimeE(v interface{}) (time.Time, error) {
	return cast.ToTimeE(v)
}

// ToInt64E converts a value to int64.
func ToInt64E(v interface{}) (int64, error) {
	return cast.ToInt64E(v)
}

// ToString renders a value as a string. Used when building composite
// group keys.
func ToString(v interface{}) string {
	return cast.ToString(v)
}
