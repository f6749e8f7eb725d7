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

package criteria

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func nextToken(s string) (tok, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func parseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// ParseFilter parses a filter written as "FIELD OP [VALUE]", e.g.
// "JOB_ID GREATER_THAN 42" or `SPECIFICATION JSON_LEFT_CONTAINS {"type": "TEST"}`.
// Names are case insensitive. Integer values become int64 and true/false
// become bools. Anything else, including JSON documents, is kept as a string.
func ParseFilter[F Field](fields []F, s string) (Filter[F], error) {
	name, rest := nextToken(s)
	field, ok := ParseField(fields, strings.ToUpper(name))
	if !ok {
		return Filter[F]{}, errors.Errorf("unknown field '%s'", name)
	}
	opName, value := nextToken(rest)
	op, err := ParseOp(opName)
	if err != nil {
		return Filter[F]{}, err
	}
	switch {
	case op.Unary():
		if value != "" {
			return Filter[F]{}, errors.Errorf("operator %s takes no value", op)
		}
		return NewFilter(field, op, nil), nil
	case value == "" && op != Noop:
		return Filter[F]{}, errors.Errorf("operator %s needs a value", op)
	case value == "":
		return NewFilter(field, op, nil), nil
	}
	return NewFilter(field, op, parseValue(value)), nil
}

// Parse builds criteria from filter, ordering and paging arguments as given
// on a command line or in a query string. Filters are combined with AND,
// except a filter prefixed with "OR " which is combined with the one before
// it by OR. Orderings are written "FIELD [ASC|DESC]".
func Parse[F Field](fields []F, filters, orderings []string, limit, offset int) (*ListCriteria[F], error) {
	c := New[F]()
	for i, s := range filters {
		or := false
		if tok, rest := nextToken(s); strings.EqualFold(tok, string(Or)) {
			if i == 0 {
				return nil, errors.Errorf("first filter '%s' can not be combined by OR", s)
			}
			or, s = true, rest
		}
		f, err := ParseFilter(fields, s)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing filter '%s'", s)
		}
		switch {
		case i == 0:
			c.Where(f)
		case or:
			c.Or(f)
		default:
			c.And(f)
		}
	}
	for _, s := range orderings {
		name, dir := nextToken(s)
		field, ok := ParseField(fields, strings.ToUpper(name))
		if !ok {
			return nil, errors.Errorf("unknown field '%s' in ordering", name)
		}
		sort := Asc
		switch strings.ToUpper(dir) {
		case "", string(Asc):
		case string(Desc):
			sort = Desc
		default:
			return nil, errors.Errorf("unknown sort direction '%s'", dir)
		}
		c.OrderBy(field, sort)
	}
	if limit < 0 || offset < 0 {
		return nil, errors.Errorf("negative limit %d or offset %d", limit, offset)
	}
	return c.WithLimit(limit).WithOffset(offset), nil
}
