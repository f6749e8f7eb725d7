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

package file

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

func tempDirName(t testing.TB) string {
	tf, err := ioutil.TempDir("", "")
	if err != nil {
		t.Fatalf("couldn't get temp dir: %v", err)
	}
	return tf
}

func TestStore(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	s, err := NewStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	ctx := context.Background()
	urn, err := s.Add(ctx, strings.NewReader("001 00 *a1\n$\n"))
	if err != nil {
		t.Fatalf("adding file: %v", err)
	}
	parsed, err := dataio.ParseFileStoreURN(urn.String())
	if err != nil || parsed != urn {
		t.Fatalf("urn %s does not round trip: %v", urn, err)
	}

	size, err := s.ByteSize(ctx, urn.FileID)
	if err != nil || size != 13 {
		t.Fatalf("expected 13 bytes, got %d, %v", size, err)
	}
	rc, err := s.File(ctx, urn.FileID)
	if err != nil {
		t.Fatalf("opening file: %v", err)
	}
	data, err := ioutil.ReadAll(rc)
	rc.Close()
	if err != nil || string(data) != "001 00 *a1\n$\n" {
		t.Fatalf("unexpected content %q, %v", data, err)
	}

	other, err := s.Add(ctx, strings.NewReader(""))
	if err != nil || other == urn {
		t.Fatalf("expected a new id, got %s, %v", other, err)
	}
}

func TestStoreErrors(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	ctx := context.Background()
	if _, err := s.File(ctx, "missing"); errors.Cause(err) != dataio.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.ByteSize(ctx, "missing"); errors.Cause(err) != dataio.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.File(ctx, "../etc/passwd"); err == nil || errors.Cause(err) == dataio.ErrNotFound {
		t.Fatalf("expected invalid id, got %v", err)
	}
}

func TestRawSource(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	for _, name := range []string{"a.toml", "b.toml"} {
		if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(name), 0600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0700); err != nil {
		t.Fatalf("making sub dir: %v", err)
	}
	src, err := NewRawSource(dir)
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	if src.Len() != 2 {
		t.Fatalf("expected 2 files, got %d", src.Len())
	}
	var names []string
	for {
		r, err := src.NextReader()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("next reader: %v", err)
		}
		data, _ := ioutil.ReadAll(r)
		r.Close()
		if string(data) != r.Name() {
			t.Fatalf("unexpected content %s of %s", data, r.Name())
		}
		names = append(names, r.Name())
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "a.toml,b.toml" {
		t.Fatalf("unexpected files %v", names)
	}

	single, err := NewRawSource(filepath.Join(dir, "a.toml"))
	if err != nil || single.Len() != 1 {
		t.Fatalf("expected single file source, got %v", err)
	}
}
