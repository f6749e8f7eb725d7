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

// Package lineformat reads and writes danMARC2 records in line format.
//
// A record is a sequence of lines, each holding one data field:
//
//	245 00 *aA title*bsubtitle
//
// terminated by a line containing only '$' or by end of input. A line
// starting with exactly four spaces continues the previous line. Inside
// subfield data '@' is escaped as "@@" and '*' as "@*".
package lineformat

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

const (
	lineContinuation = "    "
	endOfRecord      = "$"
	escapeChar       = '@'
	subfieldMarker   = '*'
)

var validLine = regexp.MustCompile(`([[:alnum:]]{3}) ([[:alnum:]])([[:alnum:]]) (\*\p{Latin}.+)$`)

// ErrNotLineFormat is returned when input fails to parse before anything in
// it has looked like line format.
var ErrNotLineFormat = errors.New("not recognised as line format")

// InvalidRecordError is returned when a single record could not be parsed. The
// reader has skipped the rest of the record, so reading may continue.
type InvalidRecordError struct {
	Msg string
	// BytesRead holds the raw lines consumed for the record.
	BytesRead []byte
}

func (e *InvalidRecordError) Error() string {
	return e.Msg
}

// ReaderOption is a functional option type for Reader.
type ReaderOption func(r *Reader)

// OptReaderLogger sets the logger used while skipping invalid records.
func OptReaderLogger(l dataio.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = l
	}
}

// Reader reads line format records from an UTF-8 stream. A Reader is not
// safe for concurrent use.
type Reader struct {
	br  *bufio.Reader
	log dataio.Logger

	lineNo int
	// looksLikeLineFormat is set once any line has matched validLine and is
	// never reset.
	looksLikeLineFormat bool
	raw                 bytes.Buffer
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		br:  bufio.NewReader(r),
		log: dataio.NopLogger{},
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// LineNo returns the number of the line most recently read.
func (r *Reader) LineNo() int {
	return r.lineNo
}

// Read returns the next record. It returns io.EOF when the input holds no more
// records, *InvalidRecordError when a record was broken and has been skipped,
// and ErrNotLineFormat when the input does not look like line format at all.
func (r *Reader) Read() (*dataio.Record, error) {
	r.raw.Reset()
	var fields []dataio.Field
	line, err := r.nextLine()
	for ; err == nil && line != endOfRecord; line, err = r.nextLine() {
		buf := line
		for {
			cont, err := r.isNextLineContinuation()
			if err != nil {
				return nil, err
			}
			if !cont {
				break
			}
			next, err := r.nextLine()
			if err != nil && err != io.EOF {
				return nil, err
			}
			buf += next
		}
		df, err := r.dataField(buf)
		if err != nil {
			return nil, r.handle(err)
		}
		fields = append(fields, df)
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, io.EOF
	}
	leader := dataio.DefaultLeader
	return &dataio.Record{Leader: &leader, Fields: fields}, nil
}

func (r *Reader) handle(err *InvalidRecordError) error {
	if !r.looksLikeLineFormat {
		return ErrNotLineFormat
	}
	r.skipRecord()
	err.BytesRead = append([]byte(nil), r.raw.Bytes()...)
	return err
}

func (r *Reader) skipRecord() {
	r.log.Debugf("skipping record from line %d and onwards", r.lineNo)
	for {
		line, err := r.nextLine()
		if err == io.EOF || line == endOfRecord {
			return
		}
		if err != nil {
			r.log.Printf("error while skipping line %d: %v", r.lineNo, err)
			return
		}
	}
}

func (r *Reader) dataField(line string) (*dataio.DataField, *InvalidRecordError) {
	m := validLine.FindStringSubmatch(line)
	if m == nil {
		return nil, &InvalidRecordError{Msg: fmt.Sprintf("format of line %d does not match '%s'", r.lineNo, validLine)}
	}
	r.looksLikeLineFormat = true
	subFields, err := r.subFields(m[4])
	if err != nil {
		return nil, err
	}
	return &dataio.DataField{
		Tag:       m[1],
		Ind1:      rune(m[2][0]),
		Ind2:      rune(m[3][0]),
		SubFields: subFields,
	}, nil
}

// subFields decodes the subfield part of a line one code point at a time.
func (r *Reader) subFields(s string) ([]dataio.SubField, *InvalidRecordError) {
	var (
		subFields  []dataio.SubField
		acc        bytes.Buffer
		current    *dataio.SubField
		prevEscape bool
		prevMarker bool
	)
	for _, c := range s {
		switch {
		case c == subfieldMarker:
			if prevEscape {
				acc.WriteRune(c)
				prevEscape = false
			} else {
				prevMarker = true
			}
		case c == escapeChar:
			if prevEscape {
				acc.WriteRune(c)
				prevEscape = false
			} else {
				prevEscape = true
			}
		case prevMarker:
			if current != nil {
				current.Data = acc.String()
				subFields = append(subFields, *current)
			}
			prevMarker = false
			acc.Reset()
			current = &dataio.SubField{Code: c}
		case prevEscape:
			return nil, &InvalidRecordError{Msg: fmt.Sprintf("illegal escape sequence '@%c' at line %d", c, r.lineNo)}
		default:
			acc.WriteRune(c)
		}
	}
	if prevEscape {
		return nil, &InvalidRecordError{Msg: fmt.Sprintf("illegal escape character '%c' at end of line %d", escapeChar, r.lineNo)}
	}
	if prevMarker {
		return nil, &InvalidRecordError{Msg: fmt.Sprintf("illegal subfield marker '%c' at end of line %d", subfieldMarker, r.lineNo)}
	}
	if current != nil {
		current.Data = acc.String()
		subFields = append(subFields, *current)
	}
	return subFields, nil
}

// nextLine returns the next line without its line terminator, or io.EOF.
func (r *Reader) nextLine() (string, error) {
	r.lineNo++
	line, err := r.br.ReadString('\n')
	r.raw.WriteString(line)
	if err == io.EOF {
		if line == "" {
			return "", io.EOF
		}
		r.raw.WriteByte('\n')
	} else if err != nil {
		return "", errors.Wrapf(err, "reading line %d", r.lineNo)
	}
	line = trimEOL(line)
	return line, nil
}

func (r *Reader) isNextLineContinuation() (bool, error) {
	peek, err := r.br.Peek(len(lineContinuation))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return false, errors.Wrapf(err, "testing for line continuation at line %d", r.lineNo)
	}
	if string(peek) != lineContinuation {
		return false, nil
	}
	_, err = r.br.Discard(len(lineContinuation))
	if err != nil {
		return false, errors.Wrapf(err, "consuming line continuation at line %d", r.lineNo)
	}
	r.raw.WriteString(lineContinuation)
	return true, nil
}

func trimEOL(line string) string {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
