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

// Package jobstore creates jobs: it resolves job specifications against the
// flow-store, partitions the job's data file into chunks of items and
// persists the result.
package jobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/partitioner"
	"github.com/pkg/errors"
)

// DefaultMaxChunkSize is the default maximum number of items in a chunk.
const DefaultMaxChunkSize = 10

// JobStore creates jobs and their chunks.
type JobStore struct {
	store     Store
	flowStore dataio.FlowStore
	fileStore dataio.FileStore
	publisher Publisher

	maxChunkSize int
	stats        dataio.Statter
	log          dataio.Logger
	now          func() time.Time
}

// Option configures a JobStore.
type Option func(js *JobStore)

// OptMaxChunkSize sets the maximum number of items in a chunk.
func OptMaxChunkSize(n int) Option {
	return func(js *JobStore) {
		js.maxChunkSize = n
	}
}

// OptPublisher publishes every chunk once it has been stored.
func OptPublisher(p Publisher) Option {
	return func(js *JobStore) {
		js.publisher = p
	}
}

// OptStatter sets the stats collector.
func OptStatter(s dataio.Statter) Option {
	return func(js *JobStore) {
		js.stats = s
	}
}

// OptLogger sets the logger.
func OptLogger(l dataio.Logger) Option {
	return func(js *JobStore) {
		js.log = l
	}
}

// optClock replaces time.Now.
func optClock(now func() time.Time) Option {
	return func(js *JobStore) {
		js.now = now
	}
}

// New returns a JobStore persisting to store.
func New(store Store, flowStore dataio.FlowStore, fileStore dataio.FileStore, opts ...Option) *JobStore {
	js := &JobStore{
		store:        store,
		flowStore:    flowStore,
		fileStore:    fileStore,
		maxChunkSize: DefaultMaxChunkSize,
		stats:        dataio.NopStatter{},
		log:          dataio.NopLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(js)
	}
	if js.maxChunkSize < 1 {
		js.maxChunkSize = DefaultMaxChunkSize
	}
	return js
}

// AddJob resolves spec, stores a job for it and partitions its data file
// into chunks. If include is given, only records at those positions are
// partitioned. Failures to resolve or partition the job are recorded as
// diagnostics on the returned job, which is then flagged with a fatal error
// and has no chunks. Errors are only returned if the job or its chunks could
// not be stored or published.
func (js *JobStore) AddJob(ctx context.Context, spec dataio.JobSpecification, include ...uint64) (*dataio.Job, error) {
	start := js.now()
	param, err := NewAddJobParam(ctx, spec, js.flowStore)
	if err != nil {
		return nil, errors.Wrap(err, "resolving job specification")
	}
	job := &dataio.Job{
		Specification:          spec,
		FlowStoreReferences:    param.FlowStoreReferences(),
		Priority:               param.Priority(),
		RecordSplitter:         param.RecordSplitter(),
		State:                  dataio.NewState(),
		Diagnostics:            param.Diagnostics(),
		TimeOfCreation:         start,
		TimeOfLastModification: start,
	}
	if param.KeyGenerator() == nil && !dataio.HasFatal(job.Diagnostics) {
		job.Diagnostics = append(job.Diagnostics, dataio.NewFatalDiagnostic(
			"Sequence analysis is required, but no sink was resolved", nil))
	}
	if dataio.HasFatal(job.Diagnostics) {
		js.fail(job)
		if err := js.store.CreateJob(ctx, job); err != nil {
			return nil, errors.Wrap(err, "storing job")
		}
		js.log.Printf("job %d could not be resolved: %s", job.ID, job.Diagnostics[0].Message)
		return job, nil
	}
	if err := js.store.CreateJob(ctx, job); err != nil {
		return nil, errors.Wrap(err, "storing job")
	}

	pp, err := NewPartitioningParam(ctx, job, param.RecordSplitter(), js.fileStore, js.flowStore,
		OptIncludePositions(include...), OptKeyGenerator(param.KeyGenerator()), OptPartitioningLogger(js.log))
	if err != nil {
		return nil, errors.Wrap(err, "preparing partitioning")
	}
	defer pp.Close()
	job.Diagnostics = append(job.Diagnostics, pp.Diagnostics()...)
	if dataio.HasFatal(job.Diagnostics) {
		js.fail(job)
		return job, errors.Wrap(js.store.UpdateJob(ctx, job), "updating job")
	}
	job.PreviewOnly = pp.PreviewOnly()

	if err := js.partition(ctx, job, pp); err != nil {
		return nil, err
	}
	js.checkByteSize(ctx, job, pp)
	if dataio.HasFatal(job.Diagnostics) {
		job.FatalError = true
	}
	end := js.now()
	if job.NumberOfItems == 0 || job.FatalError {
		job.TimeOfCompletion = &end
	}
	job.TimeOfLastModification = end
	js.stats.Timing(dataio.StatJobDuration, end.Sub(start), 1)
	return job, errors.Wrap(js.store.UpdateJob(ctx, job), "updating job")
}

func (js *JobStore) fail(job *dataio.Job) {
	now := js.now()
	job.FatalError = true
	job.TimeOfCompletion = &now
	job.TimeOfLastModification = now
}

// partition drains the partitioner into chunks, storing and publishing each
// of them. An unrecoverable partitioner error ends partitioning with a
// failed item in the last chunk.
func (js *JobStore) partition(ctx context.Context, job *dataio.Job, pp *PartitioningParam) error {
	begin := js.now()
	job.State.Update(dataio.StateChange{Phase: dataio.PhasePartitioning, Begin: &begin})
	dp := pp.Partitioner()
	var chunkID int64
	for done := false; !done; chunkID++ {
		chunk, items, last := js.nextChunk(job, chunkID, dp, pp.KeyGenerator())
		done = last
		if len(items) == 0 {
			break
		}
		if err := js.store.AddChunk(ctx, chunk, items); err != nil {
			return errors.Wrapf(err, "storing chunk %d of job %d", chunk.ID, job.ID)
		}
		if js.publisher != nil {
			if err := js.publisher.Publish(ctx, chunk); err != nil {
				return errors.Wrapf(err, "publishing chunk %d of job %d", chunk.ID, job.ID)
			}
		}
		js.stats.Count(dataio.StatChunks, 1, 1)
		ps := chunk.State.Phase(dataio.PhasePartitioning)
		job.State.Update(dataio.StateChange{
			Phase:     dataio.PhasePartitioning,
			Succeeded: ps.Succeeded,
			Failed:    ps.Failed,
			Ignored:   ps.Ignored,
		})
		job.NumberOfChunks++
		job.NumberOfItems += len(items)
	}
	end := js.now()
	job.State.Update(dataio.StateChange{Phase: dataio.PhasePartitioning, End: &end})
	js.stats.Count(dataio.StatBytesRead, dp.BytesRead(), 1)
	return nil
}

// nextChunk reads up to maxChunkSize results from dp. last is set when dp
// is exhausted or failed.
func (js *JobStore) nextChunk(job *dataio.Job, chunkID int64, dp partitioner.DataPartitioner,
	kg dataio.KeyGenerator) (chunk *dataio.Chunk, items []*dataio.Item, last bool) {
	now := js.now()
	chunk = &dataio.Chunk{
		JobID:        job.ID,
		ID:           chunkID,
		DataFileID:   job.Specification.DataFile,
		State:        dataio.NewState(),
		TimeOfCreate: now,
	}
	var infos []*dataio.RecordInfo
	for len(items) < js.maxChunkSize {
		res, err := dp.Next()
		if err == io.EOF {
			last = true
			break
		}
		id := len(items)
		if err != nil {
			msg := fmt.Sprintf("Unable to complete partitioning at chunk %d item %d: %s", chunkID, id, err)
			js.log.Printf("job %d: %s", job.ID, msg)
			res = partitioner.Result{Item: dataio.NewFailedItem(id, nil, dataio.NewFatalDiagnostic(msg, err))}
			last = true
		}
		res.Item.ID = id
		change := dataio.StateChange{Phase: dataio.PhasePartitioning, Begin: &now, End: &now}
		switch res.Item.Status {
		case dataio.StatusSuccess:
			change.Succeeded = 1
		case dataio.StatusFailure:
			change.Failed = 1
		case dataio.StatusIgnore:
			change.Ignored = 1
		}
		state := dataio.NewState()
		state.Update(change)
		chunk.State.Update(change)
		dataio.CountStatus(js.stats, res.Item.Status)
		chunk.Items = append(chunk.Items, res.Item)
		infos = append(infos, res.RecordInfo)
		items = append(items, &dataio.Item{
			JobID:          job.ID,
			ChunkID:        chunkID,
			ID:             id,
			State:          state,
			RecordInfo:     res.RecordInfo,
			Partitioning:   res.Item,
			TimeOfCreation: now,
		})
		if last {
			break
		}
	}
	if chunk.State.Phase(dataio.PhasePartitioning).Failed > 0 {
		chunk.Keys = []string{}
	} else {
		chunk.Keys = kg.GenerateKeys(infos)
	}
	return chunk, items, last
}

// checkByteSize compares the number of bytes partitioned with the size of
// the data file in the file-store.
func (js *JobStore) checkByteSize(ctx context.Context, job *dataio.Job, pp *PartitioningParam) {
	if pp.DataFileID() == "" {
		return
	}
	size, err := js.fileStore.ByteSize(ctx, pp.DataFileID())
	if err != nil {
		job.Diagnostics = append(job.Diagnostics, dataio.NewFatalDiagnostic(
			fmt.Sprintf("Could not get byte size of data file: %s", job.Specification.DataFile), err))
		return
	}
	if read := pp.Partitioner().BytesRead(); read != size {
		job.Diagnostics = append(job.Diagnostics, dataio.NewFatalDiagnostic(
			fmt.Sprintf("DataPartitioner.byteSize was: %d. FileStore.byteSize was: %d", read, size), nil))
	}
}
