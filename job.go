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

package dataio

import "time"

// Job is the job-store's record of a submitted job.
type Job struct {
	ID                  int64               `json:"id"`
	Specification       JobSpecification    `json:"specification"`
	FlowStoreReferences FlowStoreReferences `json:"flowStoreReferences"`
	Priority            Priority            `json:"priority"`
	RecordSplitter      RecordSplitter      `json:"recordSplitter,omitempty"`
	State               *State              `json:"state"`
	Diagnostics         []Diagnostic        `json:"diagnostics,omitempty"`
	FatalError          bool                `json:"fatalError"`
	PreviewOnly         bool                `json:"previewOnly"`
	NumberOfChunks      int                 `json:"numberOfChunks"`
	NumberOfItems       int                 `json:"numberOfItems"`

	TimeOfCreation         time.Time  `json:"timeOfCreation"`
	TimeOfLastModification time.Time  `json:"timeOfLastModification"`
	TimeOfCompletion       *time.Time `json:"timeOfCompletion,omitempty"`
}

// SinkID returns the id of the sink the job was resolved against, or 0.
func (j *Job) SinkID() int64 {
	if ref := j.FlowStoreReferences.Get(RefSink); ref != nil {
		return ref.ID
	}
	return 0
}

// Item is the job-store's record of a single chunk item.
type Item struct {
	JobID          int64       `json:"jobId"`
	ChunkID        int64       `json:"chunkId"`
	ID             int         `json:"id"`
	State          *State      `json:"state"`
	RecordInfo     *RecordInfo `json:"recordInfo,omitempty"`
	Partitioning   *ChunkItem  `json:"partitioningOutcome"`
	TimeOfCreation time.Time   `json:"timeOfCreation"`
}

// KeyGenerator computes the sequence analysis keys of a chunk from the
// record info of its items. Entries of infos may be nil.
type KeyGenerator interface {
	GenerateKeys(infos []*RecordInfo) []string
}
