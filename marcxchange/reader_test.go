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

package marcxchange

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

const simpleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<marcx:collection xmlns:marcx="info:lc/xmlns/marcxchange-v1">
  <marcx:record format="danMARC2" type="Bibliographic">
    <marcx:leader>00000n    2200000   4500</marcx:leader>
    <marcx:controlfield tag="001">123456</marcx:controlfield>
    <marcx:datafield tag="245" ind1="0" ind2="0">
      <marcx:subfield code="a">Title</marcx:subfield>
    </marcx:datafield>
  </marcx:record>
</marcx:collection>`

func simpleRecord() *dataio.Record {
	return &dataio.Record{
		Leader: &dataio.Leader{Data: "00000n    2200000   4500"},
		Fields: []dataio.Field{
			&dataio.ControlField{Tag: "001", Data: "123456"},
			&dataio.DataField{Tag: "245", Ind1: '0', Ind2: '0', SubFields: []dataio.SubField{{Code: 'a', Data: "Title"}}},
		},
	}
}

func TestRead(t *testing.T) {
	r := NewReader(strings.NewReader(simpleDoc))
	rec, err := r.Read()
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if !reflect.DeepEqual(rec, simpleRecord()) {
		t.Fatalf("unexpected record:\n%v", rec)
	}
	if r.RecordNo() != 1 {
		t.Fatalf("expected record number 1, got %d", r.RecordNo())
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadSkipsForeignElements(t *testing.T) {
	doc := `<root xmlns:marcx="info:lc/xmlns/marcxchange-v1" xmlns:o="urn:other">
<o:header><o:leader>hidden</o:leader></o:header>
<marcx:record>
  <o:note>ignored</o:note>
  <marcx:controlfield tag="001">1</marcx:controlfield>
</marcx:record>
<marcx:record>
  <marcx:controlfield tag="001">2</marcx:controlfield>
</marcx:record>
</root>`
	r := NewReader(strings.NewReader(doc))
	for _, exp := range []string{"1", "2"} {
		rec, err := r.Read()
		if err != nil {
			t.Fatalf("reading: %v", err)
		}
		if len(rec.Fields) != 1 || rec.Fields[0].(*dataio.ControlField).Data != exp {
			t.Fatalf("unexpected record:\n%v", rec)
		}
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadLatin1Declaration(t *testing.T) {
	doc := []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>` +
		`<marcx:record xmlns:marcx="info:lc/xmlns/marcxchange-v1">` +
		`<marcx:datafield tag="245" ind1="0" ind2="0"><marcx:subfield code="a">s`)
	doc = append(doc, 0xF8)
	doc = append(doc, []byte(`</marcx:subfield></marcx:datafield></marcx:record>`)...)
	rec, err := NewReader(bytes.NewReader(doc)).Read()
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if v, _ := rec.SubFieldValue("245", 'a'); v != "sø" {
		t.Fatalf("unexpected subfield value %q", v)
	}
}

func TestReadMalformed(t *testing.T) {
	doc := `<marcx:collection xmlns:marcx="info:lc/xmlns/marcxchange-v1">` +
		`<marcx:record><marcx:controlfield tag="001">1</marcx:controlfield></marcx:record>` +
		`<marcx:record><marcx:controlfield tag="001">2</marcx:record>`
	r := NewReader(strings.NewReader(doc))
	if _, err := r.Read(); err != nil {
		t.Fatalf("reading first record: %v", err)
	}
	_, err := r.Read()
	rerr, ok := err.(*ReaderError)
	if !ok {
		t.Fatalf("expected *ReaderError, got %T: %v", err, err)
	}
	if rerr.RecordNo != 2 {
		t.Fatalf("expected error in record 2, got %d", rerr.RecordNo)
	}
	if errors.Cause(err) == nil {
		t.Fatalf("expected a cause")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	rec := simpleRecord()
	rec.AddField((&dataio.DataField{Tag: "520", Ind1: '0', Ind2: '0'}).AddSubField('a', `<b> & "quoted"`))
	data, err := Marshal(rec)
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	if !bytes.HasPrefix(data, []byte(`<marcx:record xmlns:marcx="info:lc/xmlns/marcxchange-v1" format="danMARC2" type="Bibliographic">`)) {
		t.Fatalf("unexpected record element: %s", data)
	}
	got, err := NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		t.Fatalf("reading marshalled record: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch\nexp:\n%v\ngot:\n%v", rec, got)
	}
}

func TestWriterCollection(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	for i := 0; i < 2; i++ {
		if err := w.Write(simpleRecord()); err != nil {
			t.Fatalf("writing: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	r := NewReader(buf)
	for i := 0; i < 2; i++ {
		rec, err := r.Read()
		if err != nil {
			t.Fatalf("reading record %d: %v", i, err)
		}
		if !reflect.DeepEqual(rec, simpleRecord()) {
			t.Fatalf("unexpected record %d:\n%v", i, rec)
		}
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
