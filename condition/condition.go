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

// Package condition compiles record filter predicates with expr-lang.
// A predicate sees the raw record map as its environment, so
// "temperature > 20 && device != nil" filters on record fields directly.
package condition

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition is a compiled boolean predicate over a record.
type Condition interface {
	Evaluate(env interface{}) bool
}

// ExprCondition wraps a compiled expr-lang program.
type ExprCondition struct {
	program *vm.Program
}

// NewExprCondition compiles the expression. Undefined record fields
// evaluate to nil instead of failing, so sparse records are fine.
func NewExprCondition(expression string) (Condition, error) {
	program, err := expr.Compile(expression,
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, err
	}
	return &ExprCondition{program: program}, nil
}

// Evaluate runs the predicate. Runtime errors count as a non-match.
func (ec *ExprCondition) Evaluate(env interface{}) bool {
	result, err := expr.Run(ec.program, env)
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}
