/*
 * Copyright 2025 tomoncle.
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

package expr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperator is matched by every UnsupportedOperatorError.
var ErrUnsupportedOperator = errors.New("unsupported operator")

// UnsupportedOperatorError reports a node kind outside the supported set. It
// indicates a malformed tree, not a runtime condition.
type UnsupportedOperatorError struct {
	Kind Kind
}

func (e *UnsupportedOperatorError) Error() string {
	switch e.Kind {
	case KindNegate:
		return fmt.Sprintf("unary operator '%s' is not supported", e.Kind)
	case KindAdd, KindSubtract, KindMultiply, KindDivide:
		return fmt.Sprintf("binary operator '%s' is not supported", e.Kind)
	default:
		return fmt.Sprintf("operator '%s' is not supported", e.Kind)
	}
}

func (e *UnsupportedOperatorError) Is(target error) bool {
	return target == ErrUnsupportedOperator
}

func unsupported(k Kind) error { return &UnsupportedOperatorError{Kind: k} }
