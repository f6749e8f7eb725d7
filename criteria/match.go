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
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Valuer exposes the field values of an entity for in-memory matching. ok is
// false when the value is NULL.
type Valuer[F Field] interface {
	FieldValue(field F) (value interface{}, ok bool)
}

// Match reports whether v is selected by the filtering of c.
func Match[F Field](c *ListCriteria[F], v Valuer[F]) (bool, error) {
	for _, g := range c.Filtering() {
		ok, err := matchGroup(g, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchGroup evaluates the members as a disjunction of conjunctions.
func matchGroup[F Field](g *FilterGroup[F], v Valuer[F]) (bool, error) {
	result, conj := false, true
	for i, m := range g.Members {
		if i > 0 && m.LogicalOp == Or {
			result = result || conj
			conj = true
		}
		if !conj {
			continue
		}
		ok, err := matchFilter(m.Filter, v)
		if err != nil {
			return false, err
		}
		conj = ok
	}
	result = result || conj
	if g.Not {
		return !result, nil
	}
	return result, nil
}

func matchFilter[F Field](f Filter[F], v Valuer[F]) (bool, error) {
	val, ok := v.FieldValue(f.Field)
	switch f.Op {
	case IsNull:
		return !ok, nil
	case IsNotNull:
		return ok, nil
	case Noop:
		if b, isBool := val.(bool); isBool {
			return ok && b, nil
		}
		return ok, nil
	}
	if !ok {
		return false, nil
	}
	switch f.Op {
	case JSONLeftContains, JSONNotLeftContains:
		contains, err := jsonContains(val, f.Value)
		if err != nil {
			return false, errors.Wrapf(err, "matching %s", f.Field)
		}
		return contains == (f.Op == JSONLeftContains), nil
	case In:
		rv := reflect.ValueOf(val)
		if rv.Kind() != reflect.Slice {
			return false, errors.Errorf("field %s does not hold a list", f.Field)
		}
		for i := 0; i < rv.Len(); i++ {
			if c, err := compare(rv.Index(i).Interface(), f.Value); err == nil && c == 0 {
				return true, nil
			}
		}
		return false, nil
	}
	c, err := compare(val, f.Value)
	if err != nil {
		return false, errors.Wrapf(err, "matching %s", f.Field)
	}
	switch f.Op {
	case Equal:
		return c == 0, nil
	case NotEqual:
		return c != 0, nil
	case LessThan:
		return c < 0, nil
	case LessThanOrEqualTo:
		return c <= 0, nil
	case GreaterThan:
		return c > 0, nil
	case GreaterThanOrEqualTo:
		return c >= 0, nil
	}
	return false, errors.Errorf("unknown filter operator '%s'", f.Op)
}

// compare compares an entity value a with a filter value b, converting b to
// the type of a where b is given as a string.
func compare(a, b interface{}) (int, error) {
	switch av := a.(type) {
	case time.Time:
		bv, err := toTime(b)
		if err != nil {
			return 0, err
		}
		switch {
		case av.Before(bv):
			return -1, nil
		case av.After(bv):
			return 1, nil
		}
		return 0, nil
	case bool:
		bv, err := toBool(b)
		if err != nil {
			return 0, err
		}
		if av == bv {
			return 0, nil
		}
		if !av {
			return -1, nil
		}
		return 1, nil
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, errors.Errorf("cannot compare string with %T", b)
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	}
	ai, err := toInt(a)
	if err != nil {
		return 0, err
	}
	bi, err := toInt(b)
	if err != nil {
		return 0, err
	}
	switch {
	case ai < bi:
		return -1, nil
	case ai > bi:
		return 1, nil
	}
	return 0, nil
}

func toInt(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		return int64(x), nil
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		return i, errors.Wrapf(err, "parsing '%s' as integer", x)
	}
	return 0, errors.Errorf("cannot use %T as integer", v)
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		return b, errors.Wrapf(err, "parsing '%s' as boolean", x)
	}
	return false, errors.Errorf("cannot use %T as boolean", v)
}

// toTime accepts times, RFC 3339 strings and milliseconds since the epoch.
func toTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, errors.New("nil time")
		}
		return *x, nil
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t, nil
		}
	}
	ms, err := toInt(v)
	if err != nil {
		return time.Time{}, errors.Errorf("cannot use %v as time", v)
	}
	return time.Unix(0, ms*int64(time.Millisecond)), nil
}

// jsonContains implements the jsonb @> operator: left contains right.
func jsonContains(left, right interface{}) (bool, error) {
	l, err := normalizeJSON(left, false)
	if err != nil {
		return false, err
	}
	r, err := normalizeJSON(right, true)
	if err != nil {
		return false, err
	}
	return contains(l, r), nil
}

// normalizeJSON turns v into its generic JSON representation. A string is
// taken to be a JSON document if parseStrings is set.
func normalizeJSON(v interface{}, parseStrings bool) (interface{}, error) {
	var data []byte
	if s, ok := v.(string); ok && parseStrings {
		data = []byte(s)
	} else {
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "marshalling value")
		}
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "unmarshalling json")
	}
	return out, nil
}

func contains(l, r interface{}) bool {
	switch rv := r.(type) {
	case map[string]interface{}:
		lv, ok := l.(map[string]interface{})
		if !ok {
			return false
		}
		for k, v := range rv {
			lk, ok := lv[k]
			if !ok || !contains(lk, v) {
				return false
			}
		}
		return true
	case []interface{}:
		lv, ok := l.([]interface{})
		if !ok {
			return false
		}
		for _, v := range rv {
			found := false
			for _, e := range lv {
				if contains(e, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(l, r)
}

// Page orders, offsets and limits entities according to c. NULL values sort
// last regardless of direction.
func Page[F Field, V Valuer[F]](c *ListCriteria[F], entities []V) []V {
	if len(c.Ordering()) > 0 {
		sort.SliceStable(entities, func(i, j int) bool {
			for _, o := range c.Ordering() {
				a, aok := entities[i].FieldValue(o.Field)
				b, bok := entities[j].FieldValue(o.Field)
				if !aok || !bok {
					if aok != bok {
						return aok
					}
					continue
				}
				cmp, err := compare(a, b)
				if err != nil || cmp == 0 {
					continue
				}
				if o.Sort == Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if off := c.Offset(); off > 0 {
		if off >= len(entities) {
			return entities[:0]
		}
		entities = entities[off:]
	}
	if lim := c.Limit(); lim > 0 && lim < len(entities) {
		entities = entities[:lim]
	}
	return entities
}
