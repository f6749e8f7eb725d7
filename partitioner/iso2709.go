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
	"github.com/dbcdk/dataio/iso2709"
	"github.com/dbcdk/dataio/marcxchange"
	"github.com/pkg/errors"
)

// ISO2709 partitions ISO 2709 data in a latin1 compatible charset. Records
// are re-encoded as MarcXchange.
type ISO2709 struct {
	it       *iso2709.Iterator
	decode   iso2709.DecodeFunc
	log      dataio.Logger
	position int
}

// NewISO2709 returns an ISO 2709 partitioner reading r. Only latin1
// equivalent charsets are supported.
func NewISO2709(r io.Reader, cs string, opts ...Option) (*ISO2709, error) {
	o := newOptions(opts)
	if !charset.Equivalent(cs, "latin1") {
		return nil, errors.Errorf("Specified encoding not supported: '%s'", cs)
	}
	return &ISO2709{
		it: iso2709.NewIterator(r),
		decode: func(b []byte) ([]byte, error) {
			return charset.Decode(cs, b)
		},
		log: o.log,
	}, nil
}

// Next implements DataPartitioner. Framing errors abort partitioning, while
// records which cannot be decoded become FAILURE items.
func (p *ISO2709) Next() (Result, error) {
	raw, err := p.it.Next()
	if err == io.EOF {
		return Result{}, io.EOF
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "reading iso2709")
	}
	position := p.position
	p.position++

	rec, err := iso2709.Decode(raw, p.decode)
	if err != nil {
		p.log.Printf("decoding iso2709 record %d: %v", position, err)
		item := dataio.NewFailedItem(0, raw, dataio.NewFatalDiagnostic("Exception caught while decoding 2709", err))
		return Result{Item: item, Position: position}, nil
	}
	return recordResult(rec, position, marcxchange.Marshal), nil
}

// Encoding implements DataPartitioner.
func (p *ISO2709) Encoding() string { return encodingUTF8 }

// BytesRead implements DataPartitioner.
func (p *ISO2709) BytesRead() int64 { return p.it.BytesRead() }
