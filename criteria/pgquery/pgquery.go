// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package pgquery translates listing criteria into PostgreSQL queries.
//
// Every field is mapped to a Mapping which decides how a filter on the field
// is rendered. Filter values are bound as positional parameters unless the
// mapping renders them verbatim.
package pgquery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dbcdk/dataio/criteria"
	"github.com/pkg/errors"
)

// Mapping maps a criteria field to SQL.
type Mapping interface {
	// ColumnName is used in ORDER BY clauses.
	ColumnName() string
}

// Converter turns a filter value into a query parameter.
type Converter func(v interface{}) (interface{}, error)

// Column compares a column with a bound parameter.
type Column struct {
	Name string
	// Convert is applied to the filter value before binding. Nil binds the
	// value as is.
	Convert Converter
}

// ColumnName implements Mapping.
func (c Column) ColumnName() string { return c.Name }

// JSONB compares a jsonb column with the filter value inlined as a jsonb
// literal.
type JSONB struct {
	Name string
}

// ColumnName implements Mapping.
func (j JSONB) ColumnName() string { return j.Name }

// Verbatim is an SQL boolean expression used as is. The filter's operator
// and value are ignored.
type Verbatim struct {
	SQL string
}

// ColumnName implements Mapping.
func (v Verbatim) ColumnName() string { return v.SQL }

// SubSelectJSON selects rows whose Name is among the Select values of rows
// in Table where the Key member of the json Column equals the filter value.
type SubSelectJSON struct {
	Name   string
	Select string
	Table  string
	Column string
	Key    string
}

// ColumnName implements Mapping.
func (s SubSelectJSON) ColumnName() string { return s.Name }

// Placeholder formats the n'th positional parameter, counting from 1.
type Placeholder func(n int) string

// Question renders parameters as ?1, ?2 and so on.
func Question(n int) string { return "?" + strconv.Itoa(n) }

// Dollar renders parameters as $1, $2 and so on, which is what lib/pq
// expects.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Option configures a Builder.
type Option func(*options)

type options struct {
	placeholder Placeholder
}

// OptPlaceholder sets the parameter placeholder style. The default is
// Question.
func OptPlaceholder(p Placeholder) Option {
	return func(o *options) {
		o.placeholder = p
	}
}

// Builder builds queries for criteria on fields F.
type Builder[F criteria.Field] struct {
	mappings    map[F]Mapping
	placeholder Placeholder
}

// NewBuilder returns a Builder using mappings.
func NewBuilder[F criteria.Field](mappings map[F]Mapping, opts ...Option) *Builder[F] {
	o := &options{placeholder: Question}
	for _, opt := range opts {
		opt(o)
	}
	return &Builder[F]{mappings: mappings, placeholder: o.placeholder}
}

// Query appends the WHERE, ORDER BY, LIMIT and OFFSET clauses for c to base
// and returns the query along with its parameters.
func (b *Builder[F]) Query(base string, c *criteria.ListCriteria[F]) (string, []interface{}, error) {
	sb := &strings.Builder{}
	sb.WriteString(base)
	args, err := b.where(sb, c.Filtering())
	if err != nil {
		return "", nil, err
	}
	for i, o := range c.Ordering() {
		m, ok := b.mappings[o.Field]
		if !ok {
			return "", nil, errors.Errorf("no mapping for field %s", o.Field)
		}
		if i == 0 {
			sb.WriteString(" ORDER BY")
		} else {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, " %s %s", m.ColumnName(), o.Sort)
	}
	if c.Limit() > 0 {
		fmt.Fprintf(sb, " LIMIT %d", c.Limit())
	}
	if c.Offset() > 0 {
		fmt.Fprintf(sb, " OFFSET %d", c.Offset())
	}
	return sb.String(), args, nil
}

// Count appends only the WHERE clause for c to base.
func (b *Builder[F]) Count(base string, c *criteria.ListCriteria[F]) (string, []interface{}, error) {
	sb := &strings.Builder{}
	sb.WriteString(base)
	args, err := b.where(sb, c.Filtering())
	if err != nil {
		return "", nil, err
	}
	return sb.String(), args, nil
}

func (b *Builder[F]) where(sb *strings.Builder, groups []*criteria.FilterGroup[F]) ([]interface{}, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0)
	sb.WriteString(" WHERE")
	for i, g := range groups {
		if i > 0 {
			sb.WriteString(" AND")
		}
		if len(groups) > 1 {
			sb.WriteString(" (")
		}
		if g.Not {
			sb.WriteString(" NOT (")
		}
		for j, m := range g.Members {
			if j > 0 {
				sb.WriteString(" " + string(m.LogicalOp))
			}
			var err error
			if args, err = b.filter(sb, m.Filter, args); err != nil {
				return nil, err
			}
		}
		if g.Not {
			sb.WriteString(" )")
		}
		if len(groups) > 1 {
			sb.WriteString(" )")
		}
	}
	return args, nil
}

func (b *Builder[F]) filter(sb *strings.Builder, f criteria.Filter[F], args []interface{}) ([]interface{}, error) {
	m, ok := b.mappings[f.Field]
	if !ok {
		return nil, errors.Errorf("no mapping for field %s", f.Field)
	}
	switch m := m.(type) {
	case Verbatim:
		sb.WriteString(prefix(f.Op) + m.SQL)
	case JSONB:
		op, err := opString(f.Op)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Field)
		}
		fmt.Fprintf(sb, "%s%s%s'%s'::jsonb", prefix(f.Op), m.Name, op, escape(fmt.Sprint(f.Value)))
	case SubSelectJSON:
		if f.Op != criteria.In {
			return nil, errors.Errorf("field %s only supports %s, got %s", f.Field, criteria.In, f.Op)
		}
		args = append(args, f.Value)
		fmt.Fprintf(sb, " %s IN (SELECT %s FROM %s WHERE %s->>'%s' = %s)",
			m.Name, m.Select, m.Table, m.Column, m.Key, b.placeholder(len(args)))
	case Column:
		op, err := opString(f.Op)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", f.Field)
		}
		sb.WriteString(prefix(f.Op) + m.Name + op)
		if f.Op.Unary() {
			break
		}
		v := f.Value
		if m.Convert != nil {
			if v, err = m.Convert(v); err != nil {
				return nil, errors.Wrapf(err, "converting value of field %s", f.Field)
			}
		}
		args = append(args, v)
		sb.WriteString(b.placeholder(len(args)))
	default:
		return nil, errors.Errorf("unsupported mapping %T for field %s", m, f.Field)
	}
	return args, nil
}

func prefix(op criteria.Op) string {
	if op == criteria.JSONNotLeftContains {
		return " NOT "
	}
	return " "
}

func opString(op criteria.Op) (string, error) {
	switch op {
	case criteria.Equal:
		return "=", nil
	case criteria.GreaterThan:
		return ">", nil
	case criteria.GreaterThanOrEqualTo:
		return ">=", nil
	case criteria.LessThan:
		return "<", nil
	case criteria.LessThanOrEqualTo:
		return "<=", nil
	case criteria.NotEqual:
		return "!=", nil
	case criteria.IsNull:
		return " IS NULL", nil
	case criteria.IsNotNull:
		return " IS NOT NULL", nil
	case criteria.JSONLeftContains, criteria.JSONNotLeftContains:
		return "@>", nil
	}
	return "", errors.Errorf("unsupported filter operator %s", op)
}

func escape(s string) string {
	return strings.Replace(s, "'", "''", -1)
}

// Int converts integers and decimal strings to int64.
func Int(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		return i, errors.Wrapf(err, "parsing '%s'", x)
	}
	return nil, errors.Errorf("cannot use %T as integer", v)
}

// Timestamp converts times and milliseconds since the epoch, as integers or
// decimal strings, to time.Time.
func Timestamp(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	}
	ms, err := Int(v)
	if err != nil {
		return nil, err
	}
	return time.Unix(0, ms.(int64)*int64(time.Millisecond)), nil
}

// String binds the value's string representation.
func String(v interface{}) (interface{}, error) {
	return fmt.Sprint(v), nil
}
