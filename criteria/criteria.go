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

// Package criteria implements the listing criteria used to select jobs,
// chunks and items: groups of filters combined with AND/OR, ordering and
// paging.
//
// Filter groups are combined with AND. Within a group each filter after the
// first is combined with the one before it by its logical operator, with the
// usual precedence of AND over OR.
package criteria

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Field is the constraint satisfied by the field enums of each listable
// entity.
type Field interface {
	~string
}

// Op is a filter operator.
type Op string

// Filter operators.
const (
	Equal                Op = "EQUAL"
	NotEqual             Op = "NOT_EQUAL"
	LessThan             Op = "LESS_THAN"
	LessThanOrEqualTo    Op = "LESS_THAN_OR_EQUAL_TO"
	GreaterThan          Op = "GREATER_THAN"
	GreaterThanOrEqualTo Op = "GREATER_THAN_OR_EQUAL_TO"
	IsNull               Op = "IS_NULL"
	IsNotNull            Op = "IS_NOT_NULL"
	JSONLeftContains     Op = "JSON_LEFT_CONTAINS"
	JSONNotLeftContains  Op = "JSON_NOT_LEFT_CONTAINS"
	In                   Op = "IN"
	Noop                 Op = "NOOP"
)

var ops = []Op{Equal, NotEqual, LessThan, LessThanOrEqualTo, GreaterThan, GreaterThanOrEqualTo,
	IsNull, IsNotNull, JSONLeftContains, JSONNotLeftContains, In, Noop}

// ParseOp returns the operator named s, case insensitively.
func ParseOp(s string) (Op, error) {
	for _, op := range ops {
		if strings.EqualFold(string(op), strings.TrimSpace(s)) {
			return op, nil
		}
	}
	return "", errors.Errorf("unknown filter operator '%s'", s)
}

// Unary reports whether the operator takes no value.
func (o Op) Unary() bool {
	return o == IsNull || o == IsNotNull
}

// LogicalOp combines a filter with the one before it in a group.
type LogicalOp string

// Logical operators.
const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

// Sort is an ordering direction.
type Sort string

// Sort directions.
const (
	Asc  Sort = "ASC"
	Desc Sort = "DESC"
)

// Filter compares a field with a value.
type Filter[F Field] struct {
	Field F
	Op    Op
	Value interface{}
}

// NewFilter returns a filter. value is ignored by unary operators and may be
// nil for them.
func NewFilter[F Field](field F, op Op, value interface{}) Filter[F] {
	return Filter[F]{Field: field, Op: op, Value: value}
}

// Member is a filter together with how it is combined with the member before
// it. The logical operator of the first member of a group is not used.
type Member[F Field] struct {
	LogicalOp LogicalOp
	Filter    Filter[F]
}

// FilterGroup is a parenthesised sequence of filters, optionally negated.
type FilterGroup[F Field] struct {
	Members []Member[F]
	Not     bool
}

// OrderBy is an ordering clause.
type OrderBy[F Field] struct {
	Field F
	Sort  Sort
}

// ListCriteria selects, orders and pages entities with fields F. The zero
// value selects everything. A ListCriteria is not safe for concurrent
// mutation.
type ListCriteria[F Field] struct {
	filtering []*FilterGroup[F]
	ordering  []OrderBy[F]
	limit     int
	offset    int
}

// New returns empty criteria.
func New[F Field]() *ListCriteria[F] {
	return &ListCriteria[F]{}
}

// Where opens a new filter group holding filter.
func (c *ListCriteria[F]) Where(filter Filter[F]) *ListCriteria[F] {
	c.filtering = append(c.filtering, &FilterGroup[F]{
		Members: []Member[F]{{LogicalOp: And, Filter: filter}},
	})
	return c
}

// And adds filter to the current group combined by AND. It panics if Where
// has not been called.
func (c *ListCriteria[F]) And(filter Filter[F]) *ListCriteria[F] {
	return c.add(And, filter)
}

// Or adds filter to the current group combined by OR. It panics if Where
// has not been called.
func (c *ListCriteria[F]) Or(filter Filter[F]) *ListCriteria[F] {
	return c.add(Or, filter)
}

func (c *ListCriteria[F]) add(op LogicalOp, filter Filter[F]) *ListCriteria[F] {
	g := c.last()
	g.Members = append(g.Members, Member[F]{LogicalOp: op, Filter: filter})
	return c
}

// Not toggles negation of the current group. It panics if Where has not been
// called.
func (c *ListCriteria[F]) Not() *ListCriteria[F] {
	g := c.last()
	g.Not = !g.Not
	return c
}

func (c *ListCriteria[F]) last() *FilterGroup[F] {
	if len(c.filtering) == 0 {
		panic("criteria: no filter group, call Where first")
	}
	return c.filtering[len(c.filtering)-1]
}

// OrderBy appends an ordering clause.
func (c *ListCriteria[F]) OrderBy(field F, sort Sort) *ListCriteria[F] {
	c.ordering = append(c.ordering, OrderBy[F]{Field: field, Sort: sort})
	return c
}

// RemoveOrderBy removes all ordering clauses.
func (c *ListCriteria[F]) RemoveOrderBy() *ListCriteria[F] {
	c.ordering = nil
	return c
}

// WithLimit sets the maximum number of entities returned. 0 means no limit.
func (c *ListCriteria[F]) WithLimit(limit int) *ListCriteria[F] {
	c.limit = limit
	return c
}

// WithOffset sets the number of entities skipped.
func (c *ListCriteria[F]) WithOffset(offset int) *ListCriteria[F] {
	c.offset = offset
	return c
}

// Filtering returns the filter groups.
func (c *ListCriteria[F]) Filtering() []*FilterGroup[F] { return c.filtering }

// Ordering returns the ordering clauses.
func (c *ListCriteria[F]) Ordering() []OrderBy[F] { return c.ordering }

// Limit returns the limit, 0 if unlimited.
func (c *ListCriteria[F]) Limit() int { return c.limit }

// Offset returns the offset.
func (c *ListCriteria[F]) Offset() int { return c.offset }

// Equal reports whether c and o select, order and page identically.
func (c *ListCriteria[F]) Equal(o *ListCriteria[F]) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.limit != o.limit || c.offset != o.offset {
		return false
	}
	if len(c.filtering) != len(o.filtering) || len(c.ordering) != len(o.ordering) {
		return false
	}
	for i := range c.ordering {
		if c.ordering[i] != o.ordering[i] {
			return false
		}
	}
	for i := range c.filtering {
		if !reflect.DeepEqual(c.filtering[i], o.filtering[i]) {
			return false
		}
	}
	return true
}

func (c *ListCriteria[F]) String() string {
	sb := strings.Builder{}
	for i, g := range c.filtering {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if g.Not {
			sb.WriteString("NOT ")
		}
		sb.WriteString("(")
		for j, m := range g.Members {
			if j > 0 {
				fmt.Fprintf(&sb, " %s ", m.LogicalOp)
			}
			fmt.Fprintf(&sb, "%s %s", m.Filter.Field, m.Filter.Op)
			if !m.Filter.Op.Unary() && m.Filter.Value != nil {
				fmt.Fprintf(&sb, " %v", m.Filter.Value)
			}
		}
		sb.WriteString(")")
	}
	for i, o := range c.ordering {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", o.Field, o.Sort)
	}
	if c.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", c.limit)
	}
	if c.offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", c.offset)
	}
	return strings.TrimSpace(sb.String())
}
