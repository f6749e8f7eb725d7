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

package http

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/boltdb"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/dbcdk/dataio/mock"
)

const lineRecords = "001 00 *a1*b870970\n245 00 *aFirst\n$\n" +
	"001 00 *a2*b870970\n245 00 *aSecond\n$\n"

const spec = `{"packaging":"lin","format":"basis","charset":"latin1","destination":"broend",` +
	`"submitterId":870970,"dataFile":"urn:dataio-fs:42","type":"TEST"}`

func newServer(t *testing.T) *Server {
	tf, err := ioutil.TempFile("", "")
	if err != nil {
		t.Fatalf("couldn't get temp file: %v", err)
	}
	tf.Close()
	store, err := boltdb.NewStore(tf.Name())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tf.Name())
	})
	flows := &mock.FlowStore{
		Submitters: []*dataio.Submitter{{ID: 1, Content: dataio.SubmitterContent{Number: 870970, Enabled: true}}},
		FlowBinders: []*dataio.FlowBinder{{ID: 3, Content: dataio.FlowBinderContent{
			Packaging: "lin", Format: "basis", Charset: "latin1", Destination: "broend",
			RecordSplitter: dataio.SplitterDanMarc2LineFormat, FlowID: 5, SinkID: 7, SubmitterIDs: []int64{1},
		}}},
		Flows: map[int64]*dataio.Flow{5: {ID: 5}},
		Sinks: map[int64]*dataio.Sink{7: {ID: 7}},
	}
	files := &mock.FileStore{Files: map[string][]byte{"42": []byte(lineRecords)}}
	return NewServer(jobstore.New(store, flows, files), store)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPostAndGetJob(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodPost, "/jobs", spec)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body)
	}
	job := &dataio.Job{}
	if err := json.Unmarshal(rec.Body.Bytes(), job); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if job.ID != 1 || job.NumberOfItems != 2 || job.FatalError {
		t.Fatalf("unexpected job %+v", job)
	}

	rec = do(t, s, http.MethodGet, "/jobs/1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"numberOfItems":2`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body)
	}
	if rec = do(t, s, http.MethodGet, "/jobs/2", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", rec.Code)
	}
}

func TestPostJobErrors(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"bad json", "/jobs", "{"},
		{"bad include", "/jobs?include=x", spec},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, test.target, test.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected bad request, got %d: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestList(t *testing.T) {
	s := newServer(t)
	for i := 0; i < 3; i++ {
		if rec := do(t, s, http.MethodPost, "/jobs?include=1", spec); rec.Code != http.StatusCreated {
			t.Fatalf("posting job: %d %s", rec.Code, rec.Body)
		}
	}
	q := url.Values{"filter": {"JOB_ID GREATER_THAN 1"}, "order": {"JOB_ID DESC"}, "limit": {"1"}}
	rec := do(t, s, http.MethodGet, "/jobs?"+q.Encode(), "")
	var jobs []*dataio.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("decoding jobs: %v, %s", err, rec.Body)
	}
	if len(jobs) != 1 || jobs[0].ID != 3 {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	rec = do(t, s, http.MethodGet, "/jobs/count?"+url.Values{"filter": {"JOB_ID GREATER_THAN 1"}}.Encode(), "")
	if strings.TrimSpace(rec.Body.String()) != `{"count":2}` {
		t.Fatalf("unexpected count %s", rec.Body)
	}

	rec = do(t, s, http.MethodGet, "/items?"+url.Values{"filter": {"JOB_ID EQUAL 2"}}.Encode(), "")
	var items []*dataio.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decoding items: %v", err)
	}
	if len(items) != 1 || items[0].RecordInfo.ID != "2" {
		t.Fatalf("unexpected items %+v", items)
	}

	rec = do(t, s, http.MethodGet, "/chunks?"+url.Values{"filter": {"NOPE EQUAL 1"}}.Encode(), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for unknown field, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/chunks", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"jobId":3`) {
		t.Fatalf("unexpected chunks %d: %s", rec.Code, rec.Body)
	}
}
