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

package boltdb

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/pkg/errors"
)

func tempFileName(t *testing.T) string {
	tf, err := ioutil.TempFile("", "")
	if err != nil {
		t.Fatalf("couldn't get temp file: %v", err)
	}
	err = tf.Close()
	if err != nil {
		t.Fatalf("couldn't close temp file: %v", err)
	}
	return tf.Name()
}

func newStore(t *testing.T) *Store {
	fname := tempFileName(t)
	s, err := NewStore(fname)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(fname)
	})
	return s
}

func addJob(t *testing.T, s *Store, sinkID int64, records ...string) *dataio.Job {
	ctx := context.Background()
	job := &dataio.Job{
		Specification:  dataio.JobSpecification{SubmitterID: 870970, Format: "basis"},
		State:          dataio.NewState(),
		TimeOfCreation: time.Date(2018, 12, 3, 10, 0, 0, 0, time.UTC),
	}
	job.FlowStoreReferences.Set(dataio.RefSink, &dataio.Reference{ID: sinkID, Name: "sink"})
	if err := s.CreateJob(ctx, job); err != nil {
		t.Fatalf("creating job: %v", err)
	}
	chunk := &dataio.Chunk{JobID: job.ID, State: dataio.NewState()}
	var items []*dataio.Item
	for i, id := range records {
		item := dataio.NewSuccessfulItem(i, []byte(id), dataio.TypeString)
		chunk.Items = append(chunk.Items, item)
		items = append(items, &dataio.Item{
			JobID:        job.ID,
			ID:           i,
			State:        dataio.NewState(),
			RecordInfo:   &dataio.RecordInfo{ID: id},
			Partitioning: item,
		})
	}
	if err := s.AddChunk(ctx, chunk, items); err != nil {
		t.Fatalf("adding chunk: %v", err)
	}
	return job
}

func TestStoreJobs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	j1 := addJob(t, s, 7, "a", "b")
	j2 := addJob(t, s, 8, "c")
	if j1.ID != 1 || j2.ID != 2 {
		t.Fatalf("unexpected ids %d, %d", j1.ID, j2.ID)
	}

	j2.FatalError = true
	if err := s.UpdateJob(ctx, j2); err != nil {
		t.Fatalf("updating job: %v", err)
	}
	got, err := s.Job(ctx, 2)
	if err != nil {
		t.Fatalf("getting job: %v", err)
	}
	if !got.FatalError || got.SinkID() != 8 || got.Specification.SubmitterID != 870970 {
		t.Fatalf("unexpected job %+v", got)
	}

	if _, err := s.Job(ctx, 3); errors.Cause(err) != dataio.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.UpdateJob(ctx, &dataio.Job{ID: 3}); errors.Cause(err) != dataio.ErrNotFound {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestStoreListJobs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	addJob(t, s, 7, "a", "b")
	addJob(t, s, 8, "c")
	addJob(t, s, 7, "d")

	tests := []struct {
		name string
		c    *criteria.JobCriteria
		exp  []int64
	}{
		{"all", criteria.New[criteria.JobField](), []int64{1, 2, 3}},
		{"sink", criteria.New[criteria.JobField]().
			Where(criteria.NewFilter(criteria.JobSinkID, criteria.Equal, 7)), []int64{1, 3}},
		{"desc", criteria.New[criteria.JobField]().OrderBy(criteria.JobID, criteria.Desc), []int64{3, 2, 1}},
		{"paged", criteria.New[criteria.JobField]().OrderBy(criteria.JobID, criteria.Asc).
			WithOffset(1).WithLimit(1), []int64{2}},
		{"record id", criteria.New[criteria.JobField]().
			Where(criteria.NewFilter(criteria.JobRecordID, criteria.In, "b")).
			Or(criteria.NewFilter(criteria.JobRecordID, criteria.In, "d")), []int64{1, 3}},
		{"negated", criteria.New[criteria.JobField]().
			Where(criteria.NewFilter(criteria.JobSinkID, criteria.Equal, 7)).Not(), []int64{2}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			jobs, err := s.ListJobs(ctx, test.c)
			if err != nil {
				t.Fatalf("listing jobs: %v", err)
			}
			if len(jobs) != len(test.exp) {
				t.Fatalf("expected %v, got %d jobs", test.exp, len(jobs))
			}
			for i, j := range jobs {
				if j.ID != test.exp[i] {
					t.Fatalf("expected %v, got job %d at %d", test.exp, j.ID, i)
				}
			}
		})
	}

	n, err := s.CountJobs(ctx, criteria.New[criteria.JobField]().
		Where(criteria.NewFilter(criteria.JobSinkID, criteria.Equal, 7)).WithLimit(1))
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d, %v", n, err)
	}
}

func TestStoreChunksAndItems(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	addJob(t, s, 7, "a", "b")
	addJob(t, s, 8, "c")

	chunks, err := s.ListChunks(ctx, criteria.New[criteria.ChunkField]().
		Where(criteria.NewFilter(criteria.ChunkJobID, criteria.Equal, 2)))
	if err != nil {
		t.Fatalf("listing chunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].JobID != 2 || len(chunks[0].Items) != 0 {
		t.Fatalf("unexpected chunks %+v", chunks)
	}

	items, err := s.ListItems(ctx, criteria.New[criteria.ItemField]().
		Where(criteria.NewFilter(criteria.ItemJobID, criteria.Equal, 1)).
		OrderBy(criteria.ItemID, criteria.Desc))
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if len(items) != 2 || items[0].RecordInfo.ID != "b" || string(items[1].Partitioning.Data) != "a" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestStoreReopen(t *testing.T) {
	fname := tempFileName(t)
	defer os.Remove(fname)
	s, err := NewStore(fname)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	addJob(t, s, 7, "a")
	if err := s.Close(); err != nil {
		t.Fatalf("closing store: %v", err)
	}

	s, err = NewStore(fname)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s.Close()
	j := addJob(t, s, 7, "b")
	if j.ID != 2 {
		t.Fatalf("expected sequence to survive reopen, got id %d", j.ID)
	}
}
