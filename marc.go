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

package dataio

import (
	"fmt"
	"strings"
)

// DefaultLeader is the leader given to records whose serialization carries no
// leader of its own (line format).
var DefaultLeader = Leader{Data: "00000n    2200000   4500"}

// Leader holds the fixed-format metadata at the start of a MARC record.
type Leader struct {
	Data string
}

// Field is implemented by ControlField and DataField.
type Field interface {
	FieldTag() string
}

// ControlField is a tagged field without indicators or subfields.
type ControlField struct {
	Tag  string
	Data string
}

// FieldTag implements Field.
func (c *ControlField) FieldTag() string { return c.Tag }

// SubField is a single code/data pair within a DataField.
type SubField struct {
	Code rune
	Data string
}

// DataField is a tagged field carrying indicators and an ordered list of
// subfields. Repeated subfield codes are legal.
type DataField struct {
	Tag       string
	Ind1      rune
	Ind2      rune
	Ind3      rune
	SubFields []SubField
}

// FieldTag implements Field.
func (d *DataField) FieldTag() string { return d.Tag }

// AddSubField appends a subfield and returns the field for chaining.
func (d *DataField) AddSubField(code rune, data string) *DataField {
	d.SubFields = append(d.SubFields, SubField{Code: code, Data: data})
	return d
}

// SubFieldValue returns the data of the first subfield with the given code.
func (d *DataField) SubFieldValue(code rune) (string, bool) {
	for _, sf := range d.SubFields {
		if sf.Code == code {
			return sf.Data, true
		}
	}
	return "", false
}

// Record is a MARC record: a leader followed by an ordered list of fields.
type Record struct {
	Leader *Leader
	Fields []Field
}

// AddField appends f to the record.
func (r *Record) AddField(f Field) *Record {
	r.Fields = append(r.Fields, f)
	return r
}

// DataFields returns all data fields with the given tag in record order.
func (r *Record) DataFields(tag string) []*DataField {
	var dfs []*DataField
	for _, f := range r.Fields {
		if df, ok := f.(*DataField); ok && df.Tag == tag {
			dfs = append(dfs, df)
		}
	}
	return dfs
}

// SubFieldValue returns the first value found for tag*code.
func (r *Record) SubFieldValue(tag string, code rune) (string, bool) {
	for _, df := range r.DataFields(tag) {
		if v, ok := df.SubFieldValue(code); ok {
			return v, true
		}
	}
	return "", false
}

// String renders the record in a compact single-field-per-line form for logs
// and diagnostics.
func (r *Record) String() string {
	sb := strings.Builder{}
	if r.Leader != nil {
		sb.WriteString(r.Leader.Data)
		sb.WriteString("\n")
	}
	for _, f := range r.Fields {
		switch fld := f.(type) {
		case *ControlField:
			fmt.Fprintf(&sb, "%s %s\n", fld.Tag, fld.Data)
		case *DataField:
			fmt.Fprintf(&sb, "%s %c%c", fld.Tag, fld.Ind1, fld.Ind2)
			for _, sf := range fld.SubFields {
				fmt.Fprintf(&sb, " *%c%s", sf.Code, sf.Data)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RecordInfo summarizes the identifying parts of a record that sequence
// analysis and reordering care about.
type RecordInfo struct {
	ID       string `json:"id,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Delete   bool   `json:"delete,omitempty"`
}

// NewRecordInfo extracts 001*a, 014*a and the 004*r delete marker from rec. It
// returns nil if rec has no 001*a.
func NewRecordInfo(rec *Record) *RecordInfo {
	id, ok := rec.SubFieldValue("001", 'a')
	if !ok {
		return nil
	}
	ri := &RecordInfo{ID: id}
	ri.ParentID, _ = rec.SubFieldValue("014", 'a')
	if typ, ok := rec.SubFieldValue("004", 'r'); ok && typ == "d" {
		ri.Delete = true
	}
	return ri
}
