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

package cmd

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const entities = `{
  "submitters": [{"content": {"number": 870970, "name": "DBC", "enabled": true}}],
  "sinks": [{"id": 7, "content": {"name": "sink", "queue": "sink::dummy"}}]
}`

func tempDirName(t testing.TB) string {
	tf, err := ioutil.TempDir("", "")
	if err != nil {
		t.Fatalf("couldn't get temp dir: %v", err)
	}
	return tf
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rc := NewRootCommand(strings.NewReader(""), out, ioutil.Discard)
	rc.SetArgs(args)
	err := rc.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	if err := ioutil.WriteFile(name, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestFlowStoreCommand(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	seed := filepath.Join(dir, "entities.json")
	writeFile(t, seed, entities)
	path := filepath.Join(dir, "flowstore")

	out, err := execute(t, "flowstore", "load", "--flow-store-path", path, seed)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if out != seed+": 2 entities\n" {
		t.Fatalf("unexpected output '%s'", out)
	}
	out, err = execute(t, "flowstore", "sinks", "--flow-store-path", path)
	if err != nil {
		t.Fatalf("listing sinks: %v", err)
	}
	if !strings.Contains(out, `"id":7`) || strings.Count(out, "\n") != 1 {
		t.Fatalf("unexpected sinks '%s'", out)
	}
}

func TestFileStoreCommand(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	data := filepath.Join(dir, "records.lin")
	writeFile(t, data, "001 00 *a1\n$\n")

	out, err := execute(t, "filestore", "add", "--file-store-path", filepath.Join(dir, "fs"), data)
	if err != nil {
		t.Fatalf("adding: %v", err)
	}
	if !strings.HasPrefix(out, "urn:dataio-fs:") || !strings.HasSuffix(out, "\t"+data+"\n") {
		t.Fatalf("unexpected output '%s'", out)
	}
	if _, err := execute(t, "filestore", "add", "--file-store-path", filepath.Join(dir, "fs"), filepath.Join(dir, "nope")); err == nil {
		t.Fatalf("expected error adding missing file")
	}
}

func TestListCommand(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	db := filepath.Join(dir, "dataio.db")

	out, err := execute(t, "list", "jobs", "--bolt-path", db, "--count", "WITH_FATAL_ERROR IS_NOT_NULL")
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if out != "0\n" {
		t.Fatalf("unexpected count '%s'", out)
	}
	out, err = execute(t, "list", "items", "--bolt-path", db, "--order", "ITEM_ID DESC", "JOB_ID EQUAL 1")
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no items, got '%s'", out)
	}
	if _, err := execute(t, "list", "chunks", "--bolt-path", db, "BOGUS EQUAL 1"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
