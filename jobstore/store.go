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

package jobstore

import (
	"context"
	"time"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
)

// Store persists jobs, chunks and items. Implementations live in the boltdb
// and postgres packages.
type Store interface {
	// CreateJob stores a new job and assigns its ID.
	CreateJob(ctx context.Context, job *dataio.Job) error
	UpdateJob(ctx context.Context, job *dataio.Job) error
	// Job returns dataio.ErrNotFound if there is no job with the id.
	Job(ctx context.Context, id int64) (*dataio.Job, error)
	// AddChunk stores a chunk and its items. The chunk's Items are not
	// stored with the chunk itself.
	AddChunk(ctx context.Context, chunk *dataio.Chunk, items []*dataio.Item) error

	ListJobs(ctx context.Context, c *criteria.JobCriteria) ([]*dataio.Job, error)
	CountJobs(ctx context.Context, c *criteria.JobCriteria) (int, error)
	ListChunks(ctx context.Context, c *criteria.ChunkCriteria) ([]*dataio.Chunk, error)
	ListItems(ctx context.Context, c *criteria.ItemCriteria) ([]*dataio.Item, error)

	Close() error
}

// Publisher hands finished chunks on to processing.
type Publisher interface {
	Publish(ctx context.Context, chunk *dataio.Chunk) error
}

// JobValues exposes a job's fields to criteria.Match. RecordIDs holds the
// record ids of the job's items.
type JobValues struct {
	Job       *dataio.Job
	RecordIDs []string
}

// FieldValue implements criteria.Valuer.
func (v JobValues) FieldValue(f criteria.JobField) (interface{}, bool) {
	j := v.Job
	switch f {
	case criteria.JobID:
		return j.ID, true
	case criteria.JobSpecification:
		return j.Specification, true
	case criteria.JobSinkID:
		return j.SinkID(), true
	case criteria.JobTimeOfCreation:
		return j.TimeOfCreation, true
	case criteria.JobTimeOfLastModification:
		return j.TimeOfLastModification, true
	case criteria.JobTimeOfCompletion:
		return optionalTime(j.TimeOfCompletion)
	case criteria.JobStateProcessingFailed:
		return j.State.Phase(dataio.PhaseProcessing).Failed > 0, true
	case criteria.JobStateDeliveringFailed:
		return j.State.Phase(dataio.PhaseDelivering).Failed > 0, true
	case criteria.JobCreationFailed:
		return j.State.Phase(dataio.PhasePartitioning).Failed > 0, true
	case criteria.JobPreviewOnly:
		return j.PreviewOnly, true
	case criteria.JobWithFatalError:
		return j.FatalError, true
	case criteria.JobRecordID:
		return v.RecordIDs, true
	}
	return nil, false
}

// ChunkValues exposes a chunk's fields to criteria.Match.
type ChunkValues struct {
	Chunk *dataio.Chunk
}

// FieldValue implements criteria.Valuer.
func (v ChunkValues) FieldValue(f criteria.ChunkField) (interface{}, bool) {
	c := v.Chunk
	switch f {
	case criteria.ChunkJobID:
		return c.JobID, true
	case criteria.ChunkID:
		return c.ID, true
	case criteria.ChunkTimeOfCreation:
		return c.TimeOfCreate, true
	case criteria.ChunkTimeOfCompletion:
		return optionalTime(c.TimeOfDone)
	}
	return nil, false
}

// ItemValues exposes an item's fields to criteria.Match.
type ItemValues struct {
	Item *dataio.Item
}

// FieldValue implements criteria.Valuer.
func (v ItemValues) FieldValue(f criteria.ItemField) (interface{}, bool) {
	i := v.Item
	switch f {
	case criteria.ItemID:
		return int64(i.ID), true
	case criteria.ItemChunkID:
		return i.ChunkID, true
	case criteria.ItemJobID:
		return i.JobID, true
	case criteria.ItemTimeOfCreation:
		return i.TimeOfCreation, true
	case criteria.ItemStateFailed:
		return i.State.Failed(), true
	case criteria.ItemStateIgnored:
		return i.State.Ignored(), true
	case criteria.ItemPartitioningFailed:
		return i.State.Phase(dataio.PhasePartitioning).Failed > 0, true
	case criteria.ItemProcessingFailed:
		return i.State.Phase(dataio.PhaseProcessing).Failed > 0, true
	case criteria.ItemDeliveryFailed:
		return i.State.Phase(dataio.PhaseDelivering).Failed > 0, true
	}
	return nil, false
}

func optionalTime(t *time.Time) (interface{}, bool) {
	if t == nil {
		return nil, false
	}
	return *t, true
}
