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
	"encoding/xml"
	"io"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// Default attribute values written on the record element.
const (
	DefaultFormat = "danMARC2"
	DefaultType   = "Bibliographic"
)

// Marshal renders rec as a standalone UTF-8 MarcXchange record element.
func Marshal(rec *dataio.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := writeRecord(buf, rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Writer writes records as a MarcXchange collection. Close must be called to
// end the collection element.
type Writer struct {
	w       io.Writer
	started bool
	err     error
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes rec to the collection.
func (w *Writer) Write(rec *dataio.Record) error {
	if w.err != nil {
		return w.err
	}
	if !w.started {
		w.started = true
		if _, err := io.WriteString(w.w, xml.Header+`<marcx:collection xmlns:marcx="`+Namespace+`">`); err != nil {
			w.err = errors.Wrap(err, "writing collection start")
			return w.err
		}
	}
	buf := &bytes.Buffer{}
	if err := writeRecord(buf, rec); err != nil {
		w.err = err
		return err
	}
	if _, err := w.w.Write(buf.Bytes()); err != nil {
		w.err = errors.Wrap(err, "writing record")
	}
	return w.err
}

// Close ends the collection. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if !w.started {
		_, err := io.WriteString(w.w, xml.Header+`<marcx:collection xmlns:marcx="`+Namespace+`"/>`)
		return errors.Wrap(err, "writing empty collection")
	}
	_, err := io.WriteString(w.w, "</marcx:collection>")
	return errors.Wrap(err, "writing collection end")
}

func writeRecord(buf *bytes.Buffer, rec *dataio.Record) error {
	buf.WriteString(`<marcx:record xmlns:marcx="` + Namespace + `" format="` + DefaultFormat + `" type="` + DefaultType + `">`)
	if rec.Leader != nil {
		buf.WriteString("<marcx:leader>")
		if err := escape(buf, rec.Leader.Data); err != nil {
			return err
		}
		buf.WriteString("</marcx:leader>")
	}
	for _, f := range rec.Fields {
		switch fld := f.(type) {
		case *dataio.ControlField:
			buf.WriteString(`<marcx:controlfield tag="`)
			if err := escape(buf, fld.Tag); err != nil {
				return err
			}
			buf.WriteString(`">`)
			if err := escape(buf, fld.Data); err != nil {
				return err
			}
			buf.WriteString("</marcx:controlfield>")
		case *dataio.DataField:
			buf.WriteString(`<marcx:datafield tag="`)
			if err := escape(buf, fld.Tag); err != nil {
				return err
			}
			buf.WriteString(`"`)
			for _, ind := range []struct {
				name string
				val  rune
			}{{"ind1", fld.Ind1}, {"ind2", fld.Ind2}, {"ind3", fld.Ind3}} {
				if ind.val == 0 {
					continue
				}
				buf.WriteString(" " + ind.name + `="`)
				if err := escape(buf, string(ind.val)); err != nil {
					return err
				}
				buf.WriteString(`"`)
			}
			buf.WriteString(">")
			for _, sf := range fld.SubFields {
				buf.WriteString(`<marcx:subfield code="`)
				if err := escape(buf, string(sf.Code)); err != nil {
					return err
				}
				buf.WriteString(`">`)
				if err := escape(buf, sf.Data); err != nil {
					return err
				}
				buf.WriteString("</marcx:subfield>")
			}
			buf.WriteString("</marcx:datafield>")
		default:
			return errors.Errorf("unsupported field type %T", f)
		}
	}
	buf.WriteString("</marcx:record>")
	return nil
}

func escape(buf *bytes.Buffer, s string) error {
	return errors.Wrap(xml.EscapeText(buf, []byte(s)), "escaping")
}
