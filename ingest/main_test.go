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

package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/dbcdk/dataio/file"
	"github.com/dbcdk/dataio/leveldb"
)

const lineRecords = "001 00 *a1*b870970\n245 00 *aFirst\n$\n" +
	"001 00 *a2*b870970\n245 00 *aSecond\n$\n" +
	"001 00 *a3*b870970\n245 00 *aThird\n$\n"

func tempDirName(t testing.TB) string {
	tf, err := ioutil.TempDir("", "")
	if err != nil {
		t.Fatalf("couldn't get temp dir: %v", err)
	}
	return tf
}

// setup populates a flow-store and a file-store in dir and returns a Main
// using them along with the data file's URN.
func setup(t *testing.T, dir string) (*Main, dataio.FileStoreURN) {
	ctx := context.Background()
	fs, err := leveldb.NewFlowStore(filepath.Join(dir, "flowstore"))
	if err != nil {
		t.Fatalf("opening flow-store: %v", err)
	}
	sub := &dataio.Submitter{Content: dataio.SubmitterContent{Number: 870970, Name: "DBC", Enabled: true}}
	sink := &dataio.Sink{Content: dataio.SinkContent{Name: "sink"}}
	flow := &dataio.Flow{Content: dataio.FlowContent{Name: "flow"}}
	for _, err := range []error{fs.PutSubmitter(ctx, sub), fs.PutSink(ctx, sink), fs.PutFlow(ctx, flow)} {
		if err != nil {
			t.Fatalf("populating flow-store: %v", err)
		}
	}
	err = fs.PutFlowBinder(ctx, &dataio.FlowBinder{Content: dataio.FlowBinderContent{
		Name: "binder", Packaging: "lin", Format: "basis", Charset: "latin1", Destination: "broend",
		RecordSplitter: dataio.SplitterDanMarc2LineFormat, SequenceAnalysis: true,
		FlowID: flow.ID, SinkID: sink.ID, SubmitterIDs: []int64{sub.ID},
	}})
	if err != nil {
		t.Fatalf("putting flow binder: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("closing flow-store: %v", err)
	}

	files, err := file.NewStore(filepath.Join(dir, "filestore"))
	if err != nil {
		t.Fatalf("opening file-store: %v", err)
	}
	urn, err := files.Add(ctx, strings.NewReader(lineRecords))
	if err != nil {
		t.Fatalf("adding data file: %v", err)
	}

	m := NewMain()
	m.Specs = filepath.Join(dir, "jobs")
	m.BoltPath = filepath.Join(dir, "dataio.db")
	m.FlowStorePath = filepath.Join(dir, "flowstore")
	m.FileStorePath = filepath.Join(dir, "filestore")
	m.LogPath = filepath.Join(dir, "dataio.log")
	m.ChunkSize = 2
	m.Concurrency = 2
	return m, urn
}

func writeSpec(t *testing.T, dir, name, dataFile string) {
	spec := `packaging = "lin"
format = "basis"
charset = "latin1"
destination = "broend"
submitter = 870970
data-file = "` + dataFile + `"
type = "TEST"
`
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("making spec dir: %v", err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(spec), 0600); err != nil {
		t.Fatalf("writing spec: %v", err)
	}
}

func TestRun(t *testing.T) {
	dir := tempDirName(t)
	defer os.RemoveAll(dir)
	m, urn := setup(t, dir)
	writeSpec(t, m.Specs, "good.toml", urn.String())
	writeSpec(t, m.Specs, "missing.toml", "urn:dataio-fs:missing")
	out := &bytes.Buffer{}
	m.SetOutput(out)

	if err := m.Run(); err != nil {
		t.Fatalf("running: %v", err)
	}

	dec := json.NewDecoder(out)
	byFile := map[string]*dataio.Job{}
	for dec.More() {
		job := &dataio.Job{}
		if err := dec.Decode(job); err != nil {
			t.Fatalf("decoding output: %v", err)
		}
		byFile[job.Specification.DataFile] = job
	}
	good, bad := byFile[urn.String()], byFile["urn:dataio-fs:missing"]
	if good == nil || bad == nil {
		t.Fatalf("expected two jobs, got %v", byFile)
	}
	if good.FatalError || good.NumberOfChunks != 2 || good.NumberOfItems != 3 {
		t.Fatalf("unexpected job %+v", good)
	}
	if !bad.FatalError {
		t.Fatalf("expected job for missing data file to fail")
	}

	if err := m.Setup(context.Background()); err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer m.Close()
	jobs, err := m.Store().ListJobs(context.Background(), criteria.New[criteria.JobField]().
		Where(criteria.NewFilter(criteria.JobWithFatalError, criteria.Noop, nil)))
	if err != nil || len(jobs) != 1 || jobs[0].ID != bad.ID {
		t.Fatalf("unexpected fatal jobs %v, %v", jobs, err)
	}
}

func TestDecodeSpec(t *testing.T) {
	spec, err := DecodeSpec(strings.NewReader(`packaging = "xml"
submitter = 123456
type = "PERSISTENT"
mail-processing = "someone@example.com"
[ancestry]
transfile = "123456.trans"
`))
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if spec.Packaging != "xml" || spec.SubmitterID != 123456 || spec.Type != dataio.JobTypePersistent ||
		spec.MailForNotificationAboutProcessing != "someone@example.com" ||
		spec.Ancestry == nil || spec.Ancestry.Transfile != "123456.trans" {
		t.Fatalf("unexpected spec %+v", spec)
	}
	if _, err := DecodeSpec(strings.NewReader("packaging = ")); err == nil {
		t.Fatalf("expected error for broken toml")
	}
}
