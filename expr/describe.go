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
	"fmt"
	"strings"
)

// None is the description of an absent expression.
const None = "<none>"

// Describe renders e as a readable string. The output is for tracing only and
// is never parsed back.
//
//	Describe(FieldGreaterThan("Age", 18))      // "(Age > 18) "
//	Describe(Not(FieldEquals("Name", "x")))    // "!(Name == \"x\") "
func Describe(e Expr) (string, error) {
	if IsNil(e) {
		return None, nil
	}
	var sb strings.Builder
	if err := describe(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Readable is Describe for log statements: a malformed tree yields its error
// text instead of failing.
func Readable(e Expr) string {
	s, err := Describe(e)
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return s
}

func describe(sb *strings.Builder, e Expr) error {
	if IsNil(e) {
		return nil
	}
	switch n := e.(type) {
	case *Unary:
		if n.Op != KindNot {
			return unsupported(n.Op)
		}
		sb.WriteByte('!')
		return describe(sb, n.Operand)
	case *Binary:
		token, ok := n.Op.Token()
		if !ok {
			return unsupported(n.Op)
		}
		sb.WriteByte('(')
		if err := describe(sb, n.Left); err != nil {
			return err
		}
		sb.WriteString(" " + token + " ")
		if err := describe(sb, n.Right); err != nil {
			return err
		}
		sb.WriteString(") ")
		return nil
	case *Constant:
		sb.WriteString(constantText(n.Value))
		return nil
	case *Member:
		sb.WriteString(n.Name)
		return nil
	case *Parameter:
		return nil
	case *Record:
		sb.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := describe(sb, f); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
		return nil
	default:
		return unsupported(e.Kind())
	}
}

func constantText(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return `"` + val + `"`
	default:
		return fmt.Sprint(val)
	}
}
