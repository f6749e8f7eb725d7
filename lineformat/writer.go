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

package lineformat

import (
	"bytes"
	"io"
	"strings"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

var escaper = strings.NewReplacer("@", "@@", "*", "@*")

// Escape escapes s for use as subfield data.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Writer writes records in line format, each terminated by a '$' line.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes rec. Control fields are written as a data field with
// indicators "00" and the data in subfield 'a'.
func (w *Writer) Write(rec *dataio.Record) error {
	_, err := w.w.Write(Marshal(rec))
	return errors.Wrap(err, "writing record")
}

// Marshal returns rec in line format.
func Marshal(rec *dataio.Record) []byte {
	buf := bytes.Buffer{}
	for _, f := range rec.Fields {
		switch fld := f.(type) {
		case *dataio.ControlField:
			buf.WriteString(fld.Tag)
			buf.WriteString(" 00 *a")
			buf.WriteString(Escape(fld.Data))
		case *dataio.DataField:
			buf.WriteString(fld.Tag)
			buf.WriteByte(' ')
			buf.WriteRune(fld.Ind1)
			buf.WriteRune(fld.Ind2)
			buf.WriteByte(' ')
			for _, sf := range fld.SubFields {
				buf.WriteByte(subfieldMarker)
				buf.WriteRune(sf.Code)
				buf.WriteString(Escape(sf.Data))
			}
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(endOfRecord)
	buf.WriteByte('\n')
	return buf.Bytes()
}
