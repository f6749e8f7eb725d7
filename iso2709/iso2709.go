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

// Package iso2709 frames and decodes MARC records in the ISO 2709 exchange
// format.
package iso2709

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// Structural bytes of an ISO 2709 record.
const (
	RecordTerminator  = 0x1D
	FieldTerminator   = 0x1E
	SubFieldDelimiter = 0x1F

	LeaderLength   = 24
	directoryEntry = 12
)

// ReadError is returned by Iterator.Next when the stream cannot be framed into
// records. It is not recoverable.
type ReadError struct {
	Msg string
}

func (e *ReadError) Error() string { return e.Msg }

// Iterator frames a byte stream into raw ISO 2709 records using the record
// length found at the start of each leader.
type Iterator struct {
	br        *bufio.Reader
	bytesRead int64
}

// NewIterator returns an Iterator over r.
func NewIterator(r io.Reader) *Iterator {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Iterator{br: br}
}

// BytesRead returns the total number of bytes consumed from the stream,
// including line breaks found between records.
func (it *Iterator) BytesRead() int64 {
	return it.bytesRead
}

// Next returns the raw bytes of the next record, or io.EOF when the stream is
// exhausted.
func (it *Iterator) Next() ([]byte, error) {
	if err := it.skipLineBreaks(); err != nil {
		return nil, err
	}
	head := make([]byte, 5)
	n, err := io.ReadFull(it.br, head)
	it.bytesRead += int64(n)
	if err == io.ErrUnexpectedEOF {
		return nil, &ReadError{Msg: fmt.Sprintf("cannot read record length, got: '%s'", head[:n])}
	} else if err != nil {
		return nil, err
	}
	length, err := strconv.Atoi(string(head))
	if err != nil || length < LeaderLength+1 {
		return nil, &ReadError{Msg: fmt.Sprintf("invalid record length '%s' at byte %d", head, it.bytesRead-5)}
	}
	rec := make([]byte, length)
	copy(rec, head)
	n, err = io.ReadFull(it.br, rec[5:])
	it.bytesRead += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, &ReadError{Msg: fmt.Sprintf("Cannot read %d got:  %d", length, n+5)}
	} else if err != nil {
		return nil, errors.Wrap(err, "reading record")
	}
	return rec, nil
}

func (it *Iterator) skipLineBreaks() error {
	for {
		b, err := it.br.ReadByte()
		if err != nil {
			return err
		}
		if b != '\n' && b != '\r' {
			return it.br.UnreadByte()
		}
		it.bytesRead++
	}
}

// DecodeFunc converts field data from the record's character set to UTF-8.
type DecodeFunc func([]byte) ([]byte, error)

// Decode unpacks a raw record. Tags below 010 whose data carries no subfield
// delimiter become control fields, everything else becomes a data field with
// the number of indicators given by the leader. A record with an empty
// directory decodes to a record without fields.
func Decode(raw []byte, decode DecodeFunc) (*dataio.Record, error) {
	if len(raw) < LeaderLength {
		return nil, errors.Errorf("record of %d bytes is shorter than a leader", len(raw))
	}
	if decode == nil {
		decode = func(b []byte) ([]byte, error) { return b, nil }
	}
	leader := raw[:LeaderLength]
	base, err := strconv.Atoi(string(leader[12:17]))
	if err != nil {
		return nil, errors.Errorf("invalid base address of data '%s'", leader[12:17])
	}
	if base < LeaderLength {
		return nil, errors.Errorf("base address of data %d is inside the leader", base)
	}
	if base > len(raw) {
		return nil, errors.Errorf("base address of data %d is beyond record length %d", base, len(raw))
	}
	indicators := 2
	if c := leader[10]; c >= '0' && c <= '9' {
		indicators = int(c - '0')
	}
	rec := &dataio.Record{Leader: &dataio.Leader{Data: string(leader)}}

	dir := raw[LeaderLength:base]
	if end := bytes.IndexByte(dir, FieldTerminator); end >= 0 {
		dir = dir[:end]
	}
	if len(dir)%directoryEntry != 0 {
		return nil, errors.Errorf("directory length %d is not a multiple of %d", len(dir), directoryEntry)
	}
	for i := 0; i < len(dir); i += directoryEntry {
		entry := dir[i : i+directoryEntry]
		tag := string(entry[:3])
		length, err := strconv.Atoi(string(entry[3:7]))
		if err != nil {
			return nil, errors.Errorf("invalid field length in directory entry '%s'", entry)
		}
		start, err := strconv.Atoi(string(entry[7:12]))
		if err != nil {
			return nil, errors.Errorf("invalid field start in directory entry '%s'", entry)
		}
		if start < 0 || length < 0 {
			return nil, errors.Errorf("negative field position in directory entry '%s'", entry)
		}
		if base+start+length > len(raw) {
			return nil, errors.Errorf("field %s at %d+%d exceeds record length %d", tag, start, length, len(raw))
		}
		data := bytes.TrimRight(raw[base+start:base+start+length], string([]byte{FieldTerminator, RecordTerminator}))
		field, err := decodeField(tag, data, indicators, decode)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding field %s", tag)
		}
		rec.AddField(field)
	}
	return rec, nil
}

func decodeField(tag string, data []byte, indicators int, decode DecodeFunc) (dataio.Field, error) {
	if tag < "010" && bytes.IndexByte(data, SubFieldDelimiter) < 0 {
		text, err := decode(data)
		if err != nil {
			return nil, err
		}
		return &dataio.ControlField{Tag: tag, Data: string(text)}, nil
	}
	if len(data) < indicators {
		return nil, errors.Errorf("field shorter than %d indicators", indicators)
	}
	df := &dataio.DataField{Tag: tag}
	inds := []*rune{&df.Ind1, &df.Ind2, &df.Ind3}
	for i := 0; i < indicators && i < len(inds); i++ {
		*inds[i] = rune(data[i])
	}
	parts := bytes.Split(data[indicators:], []byte{SubFieldDelimiter})
	for _, part := range parts[1:] {
		if len(part) == 0 {
			continue
		}
		text, err := decode(part[1:])
		if err != nil {
			return nil, err
		}
		df.AddSubField(rune(part[0]), string(text))
	}
	return df, nil
}

// EncodeFunc converts UTF-8 field data to the record's character set.
type EncodeFunc func([]byte) ([]byte, error)

// Marshal packs rec as an ISO 2709 record. The leader's length and base
// address are recomputed; a missing leader is replaced by dataio.DefaultLeader.
func Marshal(rec *dataio.Record, encode EncodeFunc) ([]byte, error) {
	if encode == nil {
		encode = func(b []byte) ([]byte, error) { return b, nil }
	}
	leader := []byte(dataio.DefaultLeader.Data)
	if rec.Leader != nil && len(rec.Leader.Data) == LeaderLength {
		leader = []byte(rec.Leader.Data)
	}
	dir := &bytes.Buffer{}
	data := &bytes.Buffer{}
	for _, f := range rec.Fields {
		start := data.Len()
		switch fld := f.(type) {
		case *dataio.ControlField:
			b, err := encode([]byte(fld.Data))
			if err != nil {
				return nil, errors.Wrapf(err, "encoding field %s", fld.Tag)
			}
			data.Write(b)
		case *dataio.DataField:
			for _, ind := range []rune{fld.Ind1, fld.Ind2} {
				if ind == 0 {
					ind = ' '
				}
				data.WriteByte(byte(ind))
			}
			for _, sf := range fld.SubFields {
				data.WriteByte(SubFieldDelimiter)
				data.WriteByte(byte(sf.Code))
				b, err := encode([]byte(sf.Data))
				if err != nil {
					return nil, errors.Wrapf(err, "encoding field %s", fld.Tag)
				}
				data.Write(b)
			}
		default:
			return nil, errors.Errorf("unsupported field type %T", f)
		}
		data.WriteByte(FieldTerminator)
		if len(f.FieldTag()) != 3 {
			return nil, errors.Errorf("invalid tag '%s'", f.FieldTag())
		}
		fmt.Fprintf(dir, "%s%04d%05d", f.FieldTag(), data.Len()-start, start)
	}
	dir.WriteByte(FieldTerminator)
	data.WriteByte(RecordTerminator)

	base := LeaderLength + dir.Len()
	total := base + data.Len()
	if total > 99999 {
		return nil, errors.Errorf("record length %d exceeds 99999", total)
	}
	copy(leader[0:5], fmt.Sprintf("%05d", total))
	copy(leader[12:17], fmt.Sprintf("%05d", base))
	leader[10], leader[11] = '2', '2'

	out := make([]byte, 0, total)
	out = append(out, leader...)
	out = append(out, dir.Bytes()...)
	out = append(out, data.Bytes()...)
	return out, nil
}
