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

package partitioner

import (
	"io"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/charset"
	"github.com/dbcdk/dataio/lineformat"
	"github.com/dbcdk/dataio/marcxchange"
	"github.com/pkg/errors"
)

// LineFormat partitions DanMarc2 line-format data. Records are re-encoded as
// MarcXchange. Invalid records become FAILURE items holding the raw lines of
// the record.
type LineFormat struct {
	src      *countingReader
	reader   *lineformat.Reader
	log      dataio.Logger
	position int
}

// NewLineFormat returns a line-format partitioner reading r, which holds data
// in the given charset.
func NewLineFormat(r io.Reader, cs string, opts ...Option) (*LineFormat, error) {
	o := newOptions(opts)
	src := &countingReader{r: r}
	decoded, err := charset.NewReader(cs, src)
	if err != nil {
		return nil, errors.Wrap(err, "getting charset reader")
	}
	return &LineFormat{
		src:    src,
		reader: lineformat.NewReader(decoded, lineformat.OptReaderLogger(o.log)),
		log:    o.log,
	}, nil
}

// Next implements DataPartitioner.
func (p *LineFormat) Next() (Result, error) {
	rec, err := p.reader.Read()
	if err == io.EOF {
		return Result{}, io.EOF
	}
	if ire, ok := err.(*lineformat.InvalidRecordError); ok {
		p.log.Printf("invalid line format record at line %d: %v", p.reader.LineNo(), ire)
		item := dataio.NewFailedItem(0, ire.BytesRead, dataio.NewFatalDiagnostic(ire.Error(), ire))
		res := Result{Item: item, Position: p.position}
		p.position++
		return res, nil
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "reading line format")
	}
	res := recordResult(rec, p.position, marcxchange.Marshal)
	p.position++
	return res, nil
}

// Encoding implements DataPartitioner.
func (p *LineFormat) Encoding() string { return encodingUTF8 }

// BytesRead implements DataPartitioner.
func (p *LineFormat) BytesRead() int64 { return p.src.n }
