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

// Package marcconv converts MARC records between line format, ISO 2709 and
// MarcXchange.
package marcconv

import (
	"bufio"
	"io"
	"os"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/charset"
	"github.com/dbcdk/dataio/iso2709"
	"github.com/dbcdk/dataio/lineformat"
	"github.com/dbcdk/dataio/marcxchange"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"golang.org/x/text/transform"
)

// Record formats.
const (
	FormatLine        = "line"
	FormatISO2709     = "iso2709"
	FormatMarcXchange = "marcxchange"
)

// Main converts the records of one file.
type Main struct {
	Input         string `help:"File to read records from. Empty or - means stdin."`
	Output        string `help:"File to write records to. Empty or - means stdout."`
	From          string `help:"Format of the input: line, iso2709 or marcxchange."`
	To            string `help:"Format of the output: line, iso2709 or marcxchange."`
	Charset       string `help:"Charset of line format and ISO 2709 input. MarcXchange input declares its own."`
	OutputCharset string `help:"Charset of line format and ISO 2709 output. MarcXchange is always written as UTF-8."`
	SkipInvalid   bool   `help:"Log and skip invalid line format records instead of failing."`
	Verbose       bool   `help:"Enable verbose logging."`

	stdin  io.Reader
	stdout io.Writer
	log    logger.Logger
}

// NewMain returns a Main with default values.
func NewMain() *Main {
	return &Main{
		From:          FormatLine,
		To:            FormatMarcXchange,
		Charset:       "latin1",
		OutputCharset: "utf8",
		stdin:         os.Stdin,
		stdout:        os.Stdout,
	}
}

// Stats is the outcome of a conversion.
type Stats struct {
	Records int
	Skipped int
}

// recordReader is implemented by the readers of all input formats.
type recordReader interface {
	Read() (*dataio.Record, error)
}

// recordWriter is implemented by the writers of all output formats.
type recordWriter interface {
	Write(rec *dataio.Record) error
	Close() error
}

// Run converts the records of Input and logs the outcome.
func (m *Main) Run() error {
	stats, err := m.Convert()
	if err != nil {
		return err
	}
	m.log.Printf("converted %d records, skipped %d", stats.Records, stats.Skipped)
	return nil
}

// Convert converts the records of Input from From to To.
func (m *Main) Convert() (stats Stats, err error) {
	if m.log == nil {
		if m.Verbose {
			m.log = logger.NewVerboseLogger(os.Stderr)
		} else {
			m.log = logger.NewStandardLogger(os.Stderr)
		}
	}
	in := m.stdin
	if m.Input != "" && m.Input != "-" {
		f, err := os.Open(m.Input)
		if err != nil {
			return stats, errors.Wrap(err, "opening input")
		}
		defer f.Close()
		in = f
	}
	out := m.stdout
	if m.Output != "" && m.Output != "-" {
		f, err := os.Create(m.Output)
		if err != nil {
			return stats, errors.Wrap(err, "creating output")
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "closing output")
			}
		}()
		out = f
	}
	bw := bufio.NewWriter(out)

	r, err := m.reader(in)
	if err != nil {
		return stats, err
	}
	w, err := m.writer(bw)
	if err != nil {
		return stats, err
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if ire, ok := err.(*lineformat.InvalidRecordError); ok && m.SkipInvalid {
			m.log.Printf("skipping record: %v", ire)
			stats.Skipped++
			continue
		}
		if err != nil {
			return stats, errors.Wrapf(err, "reading record %d", stats.Records+stats.Skipped+1)
		}
		if err := w.Write(rec); err != nil {
			return stats, errors.Wrapf(err, "writing record %d", stats.Records+stats.Skipped+1)
		}
		stats.Records++
		if ri := dataio.NewRecordInfo(rec); ri != nil {
			m.log.Debugf("converted record %s", ri.ID)
		}
	}
	if err := w.Close(); err != nil {
		return stats, err
	}
	return stats, errors.Wrap(bw.Flush(), "flushing output")
}

func (m *Main) reader(in io.Reader) (recordReader, error) {
	switch m.From {
	case FormatLine:
		r, err := charset.NewReader(m.Charset, in)
		if err != nil {
			return nil, err
		}
		return lineformat.NewReader(r, lineformat.OptReaderLogger(m.log)), nil
	case FormatISO2709:
		if _, err := charset.Lookup(m.Charset); err != nil {
			return nil, err
		}
		return &isoReader{it: iso2709.NewIterator(in), charset: m.Charset}, nil
	case FormatMarcXchange:
		return marcxchange.NewReader(in), nil
	}
	return nil, errors.Errorf("unknown input format '%s'", m.From)
}

func (m *Main) writer(out io.Writer) (recordWriter, error) {
	switch m.To {
	case FormatLine:
		enc, err := charset.Lookup(m.OutputCharset)
		if err != nil {
			return nil, err
		}
		ew := transform.NewWriter(out, enc.NewEncoder())
		return &lineWriter{Writer: lineformat.NewWriter(ew), enc: ew}, nil
	case FormatISO2709:
		if _, err := charset.Lookup(m.OutputCharset); err != nil {
			return nil, err
		}
		return &isoWriter{w: out, charset: m.OutputCharset}, nil
	case FormatMarcXchange:
		return marcxchange.NewWriter(out), nil
	}
	return nil, errors.Errorf("unknown output format '%s'", m.To)
}

type isoReader struct {
	it      *iso2709.Iterator
	charset string
}

func (r *isoReader) Read() (*dataio.Record, error) {
	raw, err := r.it.Next()
	if err != nil {
		return nil, err
	}
	return iso2709.Decode(raw, func(b []byte) ([]byte, error) {
		return charset.Decode(r.charset, b)
	})
}

type isoWriter struct {
	w       io.Writer
	charset string
}

func (w *isoWriter) Write(rec *dataio.Record) error {
	data, err := iso2709.Marshal(rec, func(b []byte) ([]byte, error) {
		return charset.Encode(w.charset, b)
	})
	if err != nil {
		return err
	}
	_, err = w.w.Write(data)
	return errors.Wrap(err, "writing record")
}

func (w *isoWriter) Close() error { return nil }

type lineWriter struct {
	*lineformat.Writer
	enc io.Closer
}

// Close flushes the charset encoder. It does not close the output.
func (w *lineWriter) Close() error {
	return errors.Wrap(w.enc.Close(), "flushing encoder")
}
