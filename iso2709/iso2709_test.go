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

package iso2709

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/dbcdk/dataio"
)

func testRecord(id string) *dataio.Record {
	leader := dataio.DefaultLeader
	return &dataio.Record{
		Leader: &leader,
		Fields: []dataio.Field{
			(&dataio.DataField{Tag: "001", Ind1: '0', Ind2: '0'}).AddSubField('a', id).AddSubField('b', "870970"),
			(&dataio.DataField{Tag: "245", Ind1: '0', Ind2: '0'}).AddSubField('a', "Title"),
		},
	}
}

func mustMarshal(t *testing.T, rec *dataio.Record) []byte {
	t.Helper()
	b, err := Marshal(rec, nil)
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	return b
}

func TestMarshalDecode(t *testing.T) {
	rec := testRecord("30769430")
	rec.Fields = append([]dataio.Field{&dataio.ControlField{Tag: "005", Data: "20181201"}}, rec.Fields...)
	raw := mustMarshal(t, rec)
	if raw[len(raw)-1] != RecordTerminator {
		t.Fatalf("record does not end with a record terminator")
	}
	if string(raw[:5]) != fmt.Sprintf("%05d", len(raw)) {
		t.Fatalf("record length %s does not match %d", raw[:5], len(raw))
	}
	got, err := Decode(raw, nil)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d:\n%v", len(got.Fields), got)
	}
	if !reflect.DeepEqual(got.Fields, rec.Fields) {
		t.Fatalf("unexpected fields\nexp:\n%v\ngot:\n%v", rec, got)
	}
	if id, _ := got.SubFieldValue("001", 'a'); id != "30769430" {
		t.Fatalf("unexpected id %s", id)
	}
}

func TestIterator(t *testing.T) {
	buf := &bytes.Buffer{}
	for _, id := range []string{"1", "2", "3"} {
		buf.Write(mustMarshal(t, testRecord(id)))
		buf.WriteString("\r\n")
	}
	total := int64(buf.Len())
	it := NewIterator(buf)
	for _, id := range []string{"1", "2", "3"} {
		raw, err := it.Next()
		if err != nil {
			t.Fatalf("iterating: %v", err)
		}
		rec, err := Decode(raw, nil)
		if err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if got, _ := rec.SubFieldValue("001", 'a'); got != id {
			t.Fatalf("expected record %s, got %s", id, got)
		}
	}
	if _, err := it.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if it.BytesRead() != total {
		t.Fatalf("expected %d bytes read, got %d", total, it.BytesRead())
	}
}

func TestIteratorTruncated(t *testing.T) {
	raw := mustMarshal(t, testRecord("1"))
	it := NewIterator(bytes.NewReader(raw[:len(raw)-10]))
	_, err := it.Next()
	if _, ok := err.(*ReadError); !ok {
		t.Fatalf("expected *ReadError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "Cannot read") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestIteratorInvalidLength(t *testing.T) {
	it := NewIterator(strings.NewReader("abcdefghijklmnopqrstuvwxyz"))
	if _, err := it.Next(); err == nil {
		t.Fatal("expected error for non-numeric record length")
	}
}

func TestDecodeEmptyDirectory(t *testing.T) {
	raw := mustMarshal(t, &dataio.Record{})
	rec, err := Decode(raw, nil)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(rec.Fields) != 0 {
		t.Fatalf("expected no fields, got %v", rec.Fields)
	}
}

func TestDecodeBrokenDirectory(t *testing.T) {
	raw := mustMarshal(t, testRecord("1"))
	// point the first field beyond the end of the record
	copy(raw[LeaderLength+7:LeaderLength+12], "99999")
	if _, err := Decode(raw, nil); err == nil {
		t.Fatal("expected error for field beyond record length")
	}
}

func TestDecodeMalformed(t *testing.T) {
	valid := string(mustMarshal(t, testRecord("1")))
	tests := []struct {
		name string
		raw  string
	}{
		{"base inside leader", "00026nam  2200005   4500\x1e\x1d"},
		{"negative length", valid[:LeaderLength+3] + "-001" + valid[LeaderLength+7:]},
		{"negative start", valid[:LeaderLength+7] + "-0001" + valid[LeaderLength+12:]},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Decode([]byte(test.raw), nil); err == nil {
				t.Fatalf("expected error decoding %q", test.raw)
			}
		})
	}
}
