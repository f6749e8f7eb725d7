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

// Package marcxchange reads and writes MARC records as MarcXchange v1 XML.
package marcxchange

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/charset"
	"github.com/pkg/errors"
)

// Namespace is the MarcXchange v1 XML namespace. Elements in other namespaces
// are skipped.
const Namespace = "info:lc/xmlns/marcxchange-v1"

const (
	elemRecord       = "record"
	elemLeader       = "leader"
	elemControlField = "controlfield"
	elemDataField    = "datafield"
	elemSubField     = "subfield"
)

// ReaderError wraps a failure to read a record with the 1-based number of the
// record being read.
type ReaderError struct {
	RecordNo int
	Err      error
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("reading record %d: %v", e.RecordNo, e.Err)
}

// Cause returns the underlying error.
func (e *ReaderError) Cause() error { return e.Err }

// Reader pulls records from any XML document holding MarcXchange record
// elements, at any depth. A malformed record aborts reading; there is no
// recovery.
type Reader struct {
	dec      *xml.Decoder
	recordNo int
}

// NewReader returns a Reader reading XML from r. The XML declaration's
// encoding is honored.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReader
	return &Reader{dec: dec}
}

// RecordNo returns the number of the record most recently started.
func (r *Reader) RecordNo() int {
	return r.recordNo
}

// Read returns the next record, or io.EOF when there are no more.
func (r *Reader) Read() (*dataio.Record, error) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, r.fail(err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Space != Namespace || se.Name.Local != elemRecord {
			continue
		}
		r.recordNo++
		return r.readRecord()
	}
}

func (r *Reader) fail(err error) error {
	return &ReaderError{RecordNo: r.recordNo, Err: err}
}

func (r *Reader) readRecord() (*dataio.Record, error) {
	rec := &dataio.Record{}
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, r.fail(io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, r.fail(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Space == Namespace && t.Name.Local == elemRecord {
				return rec, nil
			}
		case xml.StartElement:
			if t.Name.Space != Namespace {
				if err := r.dec.Skip(); err != nil {
					return nil, r.fail(err)
				}
				continue
			}
			switch t.Name.Local {
			case elemLeader:
				text, err := r.text()
				if err != nil {
					return nil, r.fail(err)
				}
				rec.Leader = &dataio.Leader{Data: text}
			case elemControlField:
				text, err := r.text()
				if err != nil {
					return nil, r.fail(err)
				}
				rec.AddField(&dataio.ControlField{Tag: attr(t, "tag"), Data: text})
			case elemDataField:
				df, err := r.dataField(t)
				if err != nil {
					return nil, r.fail(err)
				}
				rec.AddField(df)
			default:
				if err := r.dec.Skip(); err != nil {
					return nil, r.fail(err)
				}
			}
		}
	}
}

func (r *Reader) dataField(se xml.StartElement) (*dataio.DataField, error) {
	df := &dataio.DataField{
		Tag:  attr(se, "tag"),
		Ind1: firstRune(attr(se, "ind1")),
		Ind2: firstRune(attr(se, "ind2")),
		Ind3: firstRune(attr(se, "ind3")),
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, errors.Wrapf(err, "reading datafield %s", df.Tag)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Space == Namespace && t.Name.Local == elemDataField {
				return df, nil
			}
		case xml.StartElement:
			if t.Name.Space == Namespace && t.Name.Local == elemSubField {
				text, err := r.text()
				if err != nil {
					return nil, errors.Wrapf(err, "reading subfield of datafield %s", df.Tag)
				}
				df.AddSubField(firstRune(attr(t, "code")), text)
				continue
			}
			if err := r.dec.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

// text returns the character data of the element just started, skipping any
// child elements.
func (r *Reader) text() (string, error) {
	sb := strings.Builder{}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if err := r.dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return sb.String(), nil
		}
	}
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name && (a.Name.Space == "" || a.Name.Space == Namespace) {
			return a.Value
		}
	}
	return ""
}

func firstRune(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
