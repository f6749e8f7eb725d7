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

// Package charset resolves the character set names used in job
// specifications and converts data between them and UTF-8.
package charset

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// aliases maps names seen in job specifications which the IANA index does not
// know to their IANA name.
var aliases = map[string]string{
	"latin1":   "ISO-8859-1",
	"latin-1":  "ISO-8859-1",
	"utf8":     "UTF-8",
	"danmarc2": "ISO-8859-1",
}

// Lookup returns the encoding registered for name.
func Lookup(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil, errors.New("empty charset name")
	}
	if alias, ok := aliases[n]; ok {
		n = alias
	}
	enc, err := ianaindex.IANA.Encoding(n)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up charset '%s'", name)
	}
	if enc == nil {
		return nil, errors.Errorf("charset '%s' is not supported", name)
	}
	return enc, nil
}

// Name returns the canonical IANA name of the named charset.
func Name(name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return "", errors.Wrapf(err, "naming charset '%s'", name)
	}
	return canonical, nil
}

// Equivalent reports whether a and b name the same charset. Unknown names are
// never equivalent to anything.
func Equivalent(a, b string) bool {
	ea, err := Lookup(a)
	if err != nil {
		return false
	}
	eb, err := Lookup(b)
	if err != nil {
		return false
	}
	return ea == eb
}

// IsUTF8 reports whether name is a UTF-8 charset name.
func IsUTF8(name string) bool {
	enc, err := Lookup(name)
	return err == nil && enc == unicode.UTF8
}

// IsLatin1 reports whether name is a ISO-8859-1 charset name.
func IsLatin1(name string) bool {
	enc, err := Lookup(name)
	return err == nil && (enc == charmap.ISO8859_1 || enc == charmap.Windows1252)
}

// NewReader returns a reader decoding r from the named charset to UTF-8.
func NewReader(name string, r io.Reader) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return r, nil
	}
	return enc.NewDecoder().Reader(r), nil
}

// Decode converts b from the named charset to UTF-8.
func Decode(name string, b []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return b, nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	return out, errors.Wrapf(err, "decoding from %s", name)
}

// Encode converts UTF-8 b to the named charset.
func Encode(name string, b []byte) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if enc == unicode.UTF8 {
		return b, nil
	}
	out, err := enc.NewEncoder().Bytes(b)
	return out, errors.Wrapf(err, "encoding to %s", name)
}
