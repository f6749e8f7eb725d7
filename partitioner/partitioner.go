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

// Package partitioner turns data files into a stream of chunk items, one per
// record, using a partitioner chosen by the job's record splitter.
package partitioner

import (
	"io"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// Result is a single partitioned record.
type Result struct {
	Item       *dataio.ChunkItem
	RecordInfo *dataio.RecordInfo
	// Position is the 0-based index of the record in the data file.
	Position int
}

// DataPartitioner is the interface implemented by all partitioners. Next
// returns io.EOF when the data file is exhausted. Any other error is
// unrecoverable; records which merely fail to parse are returned as FAILURE
// items instead.
type DataPartitioner interface {
	Next() (Result, error)
	// Encoding is the charset of the item data produced.
	Encoding() string
	// BytesRead is the number of bytes consumed from the data file so far.
	BytesRead() int64
}

// Option configures a partitioner.
type Option func(o *options)

type options struct {
	log dataio.Logger
}

// OptLogger sets the logger used by a partitioner.
func OptLogger(l dataio.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{log: dataio.NopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// UnknownSplitterError is returned by New for record splitters without a
// partitioner.
type UnknownSplitterError struct {
	Splitter dataio.RecordSplitter
}

func (e *UnknownSplitterError) Error() string {
	return "unknown data partitioner: " + string(e.Splitter)
}

// New returns the partitioner for splitter reading r, which holds data in the
// given charset.
func New(splitter dataio.RecordSplitter, r io.Reader, charset string, opts ...Option) (DataPartitioner, error) {
	if r == nil {
		return nil, errors.New("nil data stream")
	}
	switch splitter {
	case dataio.SplitterDanMarc2LineFormat:
		return NewLineFormat(r, charset, opts...)
	case dataio.SplitterISO2709:
		return NewISO2709(r, charset, opts...)
	case dataio.SplitterXML:
		return NewXML(r, charset, opts...)
	}
	return nil, &UnknownSplitterError{Splitter: splitter}
}

// Drain reads all results from p.
func Drain(p DataPartitioner) ([]Result, error) {
	var results []Result
	for {
		res, err := p.Next()
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// recordResult maps a parsed record to a result. A record without fields is
// ignored; anything else is re-encoded as MarcXchange.
func recordResult(rec *dataio.Record, position int, marshal func(*dataio.Record) ([]byte, error)) Result {
	if len(rec.Fields) == 0 {
		return Result{Item: dataio.NewIgnoredItem(0, "Empty Record"), Position: position}
	}
	data, err := marshal(rec)
	if err != nil {
		item := dataio.NewFailedItem(0, []byte(rec.String()), dataio.NewFatalDiagnostic(err.Error(), err))
		return Result{Item: item, Position: position}
	}
	item := dataio.NewSuccessfulItem(0, data, dataio.TypeMarcXchange)
	item.Encoding = encodingUTF8
	return Result{Item: item, RecordInfo: dataio.NewRecordInfo(rec), Position: position}
}

const encodingUTF8 = "UTF-8"
