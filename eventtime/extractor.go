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

// Package eventtime assigns event time timestamps to raw records.
//
// A malformed record is a recoverable error surfaced to the caller; an
// extractor never substitutes the current wall clock for a timestamp it
// could not produce.
package eventtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/streamwin/streamwin/utils/cast"
)

// ErrNoTimestamp reports that a record carries no usable event time.
var ErrNoTimestamp = errors.New("no event timestamp")

// Extractor produces the event time of a record.
type Extractor interface {
	Extract(data map[string]interface{}) (time.Time, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(data map[string]interface{}) (time.Time, error)

func (f ExtractorFunc) Extract(data map[string]interface{}) (time.Time, error) {
	return f(data)
}

// FieldExtractor reads the event time from a named record field.
// time.Time values pass through; numeric values are interpreted as an
// epoch offset in Unit; strings are parsed with the formats supported by
// utils/cast.
type FieldExtractor struct {
	Field string
	// Unit scales numeric timestamp values, e.g. time.Millisecond for
	// epoch milliseconds. Defaults to time.Nanosecond.
	Unit time.Duration
}

// NewFieldExtractor creates a field based extractor.
func NewFieldExtractor(field string, unit time.Duration) *FieldExtractor {
	if unit == 0 {
		unit = time.Nanosecond
	}
	return &FieldExtractor{Field: field, Unit: unit}
}

func (fe *FieldExtractor) Extract(data map[string]interface{}) (time.Time, error) {
	raw, ok := data[fe.Field]
	if !ok || raw == nil {
		return time.Time{}, fmt.Errorf("%w: field %q missing", ErrNoTimestamp, fe.Field)
	}
	return coerce(raw, fe.Unit, fe.Field)
}

// ExprExtractor computes the event time with a compiled expr-lang
// expression over the record, e.g. "meta.ts" or "created_at + 500".
type ExprExtractor struct {
	program *vm.Program
	unit    time.Duration
	source  string
}

// NewExprExtractor compiles the expression. The result is coerced the same
// way FieldExtractor coerces field values.
func NewExprExtractor(expression string, unit time.Duration) (*ExprExtractor, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile timestamp expression: %w", err)
	}
	if unit == 0 {
		unit = time.Nanosecond
	}
	return &ExprExtractor{program: program, unit: unit, source: expression}, nil
}

func (ee *ExprExtractor) Extract(data map[string]interface{}) (time.Time, error) {
	result, err := expr.Run(ee.program, data)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expression %q: %v", ErrNoTimestamp, ee.source, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("%w: expression %q produced nil", ErrNoTimestamp, ee.source)
	}
	return coerce(result, ee.unit, ee.source)
}

func coerce(raw interface{}, unit time.Duration, source string) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q from %s: %v", ErrNoTimestamp, v, source, err)
		}
		return t, nil
	default:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: value %v from %s: %v", ErrNoTimestamp, raw, source, err)
		}
		return time.Unix(0, n*int64(unit)), nil
	}
}
