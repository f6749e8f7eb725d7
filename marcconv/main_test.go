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

package marcconv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pilosa/pilosa/logger"
)

const latin1Lines = "001 00 *a1234\n245 00 *aS\xf8ren*bdbc@@dk\n$\n"

func convert(t *testing.T, from, to, cs, outCS string, in []byte) ([]byte, Stats) {
	t.Helper()
	m := NewMain()
	m.From, m.To, m.Charset, m.OutputCharset = from, to, cs, outCS
	out := &bytes.Buffer{}
	m.stdin, m.stdout, m.log = bytes.NewReader(in), out, logger.NopLogger
	stats, err := m.Convert()
	if err != nil {
		t.Fatalf("converting %s to %s: %v", from, to, err)
	}
	return out.Bytes(), stats
}

func TestConvertRoundTrip(t *testing.T) {
	xml, stats := convert(t, FormatLine, FormatMarcXchange, "latin1", "utf8", []byte(latin1Lines))
	if stats.Records != 1 {
		t.Fatalf("expected one record, got %+v", stats)
	}
	if !strings.Contains(string(xml), `<marcx:subfield code="a">Søren</marcx:subfield>`) {
		t.Fatalf("unexpected MarcXchange:\n%s", xml)
	}

	iso, _ := convert(t, FormatMarcXchange, FormatISO2709, "utf8", "latin1", xml)
	if iso[len(iso)-1] != 0x1D || !bytes.Contains(iso, []byte("S\xf8ren")) {
		t.Fatalf("unexpected ISO 2709 record %q", iso)
	}

	lines, _ := convert(t, FormatISO2709, FormatLine, "latin1", "latin1", iso)
	if string(lines) != latin1Lines {
		t.Fatalf("expected %q, got %q", latin1Lines, lines)
	}
}

func TestConvertSkipInvalid(t *testing.T) {
	in := []byte(latin1Lines + "245 00 *aok\nbroken\n$\n" + latin1Lines)
	m := NewMain()
	m.To = FormatLine
	m.stdin, m.stdout, m.log = bytes.NewReader(in), &bytes.Buffer{}, logger.NopLogger
	if _, err := m.Convert(); err == nil {
		t.Fatalf("expected error for invalid record")
	}

	m = NewMain()
	m.To, m.SkipInvalid = FormatLine, true
	out := &bytes.Buffer{}
	m.stdin, m.stdout, m.log = bytes.NewReader(in), out, logger.NopLogger
	stats, err := m.Convert()
	if err != nil {
		t.Fatalf("converting: %v", err)
	}
	if stats.Records != 2 || stats.Skipped != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestConvertUnknownFormat(t *testing.T) {
	m := NewMain()
	m.From = "csv"
	m.stdin, m.stdout, m.log = strings.NewReader(""), &bytes.Buffer{}, logger.NopLogger
	if _, err := m.Convert(); err == nil || !strings.Contains(err.Error(), "unknown input format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
