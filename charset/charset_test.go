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

package charset

import (
	"bytes"
	"io/ioutil"
	"testing"
)

func TestEquivalent(t *testing.T) {
	tests := []struct {
		a, b string
		exp  bool
	}{
		{"latin1", "ISO-8859-1", true},
		{"LATIN1", "iso-8859-1", true},
		{"utf8", "UTF-8", true},
		{"utf8", "latin1", false},
		{"no-such-charset", "no-such-charset", false},
	}
	for _, test := range tests {
		if got := Equivalent(test.a, test.b); got != test.exp {
			t.Errorf("Equivalent(%s, %s): expected %v, got %v", test.a, test.b, test.exp, got)
		}
	}
}

func TestLookupEmpty(t *testing.T) {
	if _, err := Lookup(" "); err == nil {
		t.Fatal("expected error for empty charset name")
	}
}

func TestDecodeLatin1(t *testing.T) {
	latin1 := []byte{'s', 0xF8, 'r', 'e'}
	out, err := Decode("latin1", latin1)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if string(out) != "søre" {
		t.Fatalf("unexpected decoding: %q", out)
	}
	back, err := Encode("latin1", out)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	if !bytes.Equal(back, latin1) {
		t.Fatalf("unexpected encoding: %v", back)
	}

	r, err := NewReader("latin1", bytes.NewReader(latin1))
	if err != nil {
		t.Fatalf("getting reader: %v", err)
	}
	all, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(all) != "søre" {
		t.Fatalf("unexpected reader output: %q", all)
	}
}

func TestIsLatin1(t *testing.T) {
	if !IsLatin1("latin1") || !IsLatin1("ISO-8859-1") {
		t.Fatal("expected latin1 names to be recognised")
	}
	if IsLatin1("utf8") {
		t.Fatal("utf8 is not latin1")
	}
	if !IsUTF8("utf-8") {
		t.Fatal("expected utf-8 to be recognised")
	}
}
