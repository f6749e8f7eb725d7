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
	"reflect"
	"testing"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in  string
		exp Filter[JobField]
		err bool
	}{
		{in: "JOB_ID GREATER_THAN 42", exp: NewFilter(JobID, GreaterThan, int64(42))},
		{in: "job_id  equal 7", exp: NewFilter(JobID, Equal, int64(7))},
		{in: `SPECIFICATION JSON_LEFT_CONTAINS {"type": "TEST"}`, exp: NewFilter(JobSpecification, JSONLeftContains, `{"type": "TEST"}`)},
		{in: "TIME_OF_COMPLETION IS_NULL", exp: NewFilter(JobTimeOfCompletion, IsNull, nil)},
		{in: "WITH_FATAL_ERROR NOOP", exp: NewFilter(JobWithFatalError, Noop, nil)},
		{in: "PREVIEW_ONLY EQUAL true", exp: NewFilter(JobPreviewOnly, Equal, true)},
		{in: "RECORD_ID IN 12345678", exp: NewFilter(JobRecordID, In, int64(12345678))},
		{in: "NOPE EQUAL 1", err: true},
		{in: "JOB_ID LIKE 1", err: true},
		{in: "JOB_ID EQUAL", err: true},
		{in: "TIME_OF_COMPLETION IS_NULL 1", err: true},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			f, err := ParseFilter(JobFields, test.in)
			if test.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing: %v", err)
			}
			if !reflect.DeepEqual(f, test.exp) {
				t.Fatalf("expected %+v, got %+v", test.exp, f)
			}
		})
	}
}

func TestParse(t *testing.T) {
	c, err := Parse(JobFields,
		[]string{"JOB_ID GREATER_THAN 1", "OR SINK_ID EQUAL 7", "WITH_FATAL_ERROR NOOP"},
		[]string{"JOB_ID desc", "TIME_OF_CREATION"}, 10, 5)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	exp := New[JobField]().
		Where(NewFilter(JobID, GreaterThan, int64(1))).
		Or(NewFilter(JobSinkID, Equal, int64(7))).
		And(NewFilter(JobWithFatalError, Noop, nil)).
		OrderBy(JobID, Desc).
		OrderBy(JobTimeOfCreation, Asc).
		WithLimit(10).WithOffset(5)
	if !c.Equal(exp) {
		t.Fatalf("expected %s, got %s", exp, c)
	}

	errs := []struct {
		name      string
		filters   []string
		orderings []string
		limit     int
	}{
		{"leading or", []string{"OR JOB_ID EQUAL 1"}, nil, 0},
		{"bad filter", []string{"JOB_ID"}, nil, 0},
		{"bad ordering field", nil, []string{"NOPE"}, 0},
		{"bad direction", nil, []string{"JOB_ID UP"}, 0},
		{"negative limit", nil, nil, -1},
	}
	for _, test := range errs {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Parse(JobFields, test.filters, test.orderings, test.limit, 0); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
