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
	"bytes"
	"encoding/xml"
	"io"
	"io/ioutil"
	"regexp"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/charset"
	"github.com/pkg/errors"
)

var declaredEncoding = regexp.MustCompile(`encoding\s*=\s*["']([^"']+)["']`)

// XML partitions an XML document into one item per child element of the
// document root. Each item is a standalone UTF-8 document consisting of the
// root element, with its namespace declarations, wrapping the child.
type XML struct {
	src      *countingReader
	dec      *xml.Decoder
	expected string
	log      dataio.Logger

	started  bool
	done     bool
	root     *xml.StartElement
	position int
}

// NewXML returns an XML partitioner reading r. The document must declare an
// encoding equivalent to cs, or none if cs is UTF-8.
func NewXML(r io.Reader, cs string, opts ...Option) (*XML, error) {
	o := newOptions(opts)
	if _, err := charset.Lookup(cs); err != nil {
		return nil, errors.Wrap(err, "resolving expected encoding")
	}
	src := &countingReader{r: r}
	dec := xml.NewDecoder(src)
	dec.CharsetReader = charset.NewReader
	return &XML{src: src, dec: dec, expected: cs, log: o.log}, nil
}

// Next implements DataPartitioner.
func (p *XML) Next() (Result, error) {
	if p.done {
		return Result{}, io.EOF
	}
	if !p.started {
		p.started = true
		if err := p.readProlog(); err != nil {
			p.done = true
			return Result{}, err
		}
	}
	start, err := p.nextChild()
	if err == io.EOF {
		p.done = true
		// count trailing bytes so BytesRead matches the file size
		if _, err := io.Copy(ioutil.Discard, p.src); err != nil {
			return Result{}, errors.Wrap(err, "reading past root element")
		}
		return Result{}, io.EOF
	}
	if err != nil {
		p.done = true
		return Result{}, err
	}
	buf := &bytes.Buffer{}
	buf.WriteString(xml.Header)
	writeStart(buf, *p.root)
	writeStart(buf, start)
	if err := p.copyElement(buf); err != nil {
		p.done = true
		return Result{}, errors.Wrapf(err, "reading record %d", p.position)
	}
	writeEnd(buf, p.root.Name)

	item := dataio.NewSuccessfulItem(0, buf.Bytes(), dataio.TypeUnknown)
	item.Encoding = encodingUTF8
	res := Result{Item: item, Position: p.position}
	p.position++
	return res, nil
}

// readProlog consumes everything up to and including the root start element
// and validates the declared encoding.
func (p *XML) readProlog() error {
	declared := encodingUTF8
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			return errors.New("Unable to find a root element in the xml stream")
		}
		if err != nil {
			return errors.Wrap(err, "reading xml prolog")
		}
		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" {
				if m := declaredEncoding.FindSubmatch(t.Inst); m != nil {
					declared = string(m[1])
					p.log.Printf("Input document specifies encoding %s", declared)
				}
			}
		case xml.StartElement:
			if !charset.Equivalent(declared, p.expected) {
				return errors.Errorf("Actual encoding '%s' differs from expected '%s' encoding", declared, p.expected)
			}
			root := t.Copy()
			p.root = &root
			return nil
		}
	}
}

// nextChild returns the start of the next child of the root, or io.EOF when
// the root ends.
func (p *XML) nextChild() (xml.StartElement, error) {
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			return xml.StartElement{}, errors.Wrap(io.ErrUnexpectedEOF, "root element not closed")
		}
		if err != nil {
			return xml.StartElement{}, errors.Wrap(err, "reading xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t.Copy(), nil
		case xml.EndElement:
			return xml.StartElement{}, io.EOF
		}
	}
}

// copyElement writes the tokens of the element just started, including its
// end element, to buf.
func (p *XML) copyElement(buf *bytes.Buffer) error {
	depth := 1
	for depth > 0 {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			writeStart(buf, t)
		case xml.EndElement:
			depth--
			writeEnd(buf, t.Name)
		case xml.CharData:
			if err := xml.EscapeText(buf, t); err != nil {
				return err
			}
		case xml.Comment:
			buf.WriteString("<!--")
			buf.Write(t)
			buf.WriteString("-->")
		case xml.ProcInst:
			buf.WriteString("<?" + t.Target + " ")
			buf.Write(t.Inst)
			buf.WriteString("?>")
		}
	}
	return nil
}

// Encoding implements DataPartitioner.
func (p *XML) Encoding() string { return encodingUTF8 }

// BytesRead implements DataPartitioner.
func (p *XML) BytesRead() int64 { return p.src.n }

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func writeStart(buf *bytes.Buffer, se xml.StartElement) {
	buf.WriteString("<" + qualified(se.Name))
	for _, a := range se.Attr {
		buf.WriteString(" " + qualified(a.Name) + `="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteString(`"`)
	}
	buf.WriteString(">")
}

func writeEnd(buf *bytes.Buffer, n xml.Name) {
	buf.WriteString("</" + qualified(n) + ">")
}
