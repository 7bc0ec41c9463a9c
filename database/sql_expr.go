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

package database

import (
	"fmt"
	"strings"

	"github.com/tomoncle/unitwork/expr"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// compileFilter renders a filter tree as a bun WHERE fragment with
// placeholders. Columns are qualified with ?TableAlias and resolved against
// the table schema by Go field name or column name.
func compileFilter(table *schema.Table, e expr.Expr) (string, []any, error) {
	c := &filterCompiler{table: table}
	if err := c.compile(e); err != nil {
		return "", nil, err
	}
	return c.sb.String(), c.args, nil
}

type filterCompiler struct {
	table *schema.Table
	sb    strings.Builder
	args  []any
}

func (c *filterCompiler) compile(e expr.Expr) error {
	if expr.IsNil(e) {
		return fmt.Errorf("nil expression in filter")
	}
	switch n := e.(type) {
	case *expr.Unary:
		if n.Op != expr.KindNot {
			return &expr.UnsupportedOperatorError{Kind: n.Op}
		}
		c.sb.WriteString("NOT (")
		if err := c.compile(n.Operand); err != nil {
			return err
		}
		c.sb.WriteByte(')')
		return nil
	case *expr.Binary:
		if n.Op.IsLogical() {
			op := " AND "
			if n.Op == expr.KindOrElse {
				op = " OR "
			}
			c.sb.WriteByte('(')
			if err := c.compile(n.Left); err != nil {
				return err
			}
			c.sb.WriteString(op)
			if err := c.compile(n.Right); err != nil {
				return err
			}
			c.sb.WriteByte(')')
			return nil
		}
		if n.Op.IsComparison() {
			return c.comparison(n)
		}
		return &expr.UnsupportedOperatorError{Kind: n.Op}
	case *expr.Member:
		// bare boolean column
		return c.operand(n)
	case *expr.Constant:
		return c.operand(n)
	default:
		if e == nil {
			return fmt.Errorf("nil filter node")
		}
		return &expr.UnsupportedOperatorError{Kind: e.Kind()}
	}
}

func (c *filterCompiler) comparison(n *expr.Binary) error {
	left, right := n.Left, n.Right
	if isNull(left) {
		left, right = right, left
	}
	if isNull(right) {
		switch n.Op {
		case expr.KindEqual:
			if err := c.operand(left); err != nil {
				return err
			}
			c.sb.WriteString(" IS NULL")
			return nil
		case expr.KindNotEqual:
			if err := c.operand(left); err != nil {
				return err
			}
			c.sb.WriteString(" IS NOT NULL")
			return nil
		}
	}
	token, _ := n.Op.Token()
	if token == "==" {
		token = "="
	} else if token == "!=" {
		token = "<>"
	}
	if err := c.operand(n.Left); err != nil {
		return err
	}
	c.sb.WriteString(" " + token + " ")
	return c.operand(n.Right)
}

func (c *filterCompiler) operand(e expr.Expr) error {
	switch n := e.(type) {
	case *expr.Member:
		col, err := resolveColumn(c.table, n.Name)
		if err != nil {
			return err
		}
		c.sb.WriteString("?TableAlias.?")
		c.args = append(c.args, bun.Ident(col))
		return nil
	case *expr.Constant:
		c.sb.WriteByte('?')
		c.args = append(c.args, n.Value)
		return nil
	default:
		return c.compile(e)
	}
}

func isNull(e expr.Expr) bool {
	cst, ok := e.(*expr.Constant)
	return ok && cst.Value == nil
}

// resolveColumn maps a field name to its column, matching the Go field name
// or the column name case-insensitively.
func resolveColumn(table *schema.Table, name string) (string, error) {
	for _, f := range table.Fields {
		if strings.EqualFold(f.GoName, name) || strings.EqualFold(f.Name, name) {
			return f.Name, nil
		}
	}
	return "", fmt.Errorf("%s has no column for field %s", table.Type.Name(), name)
}
