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

package criteria

// JobField is a field jobs can be listed by.
type JobField string

// Job fields.
const (
	JobID                     JobField = "JOB_ID"
	JobSpecification          JobField = "SPECIFICATION"
	JobSinkID                 JobField = "SINK_ID"
	JobTimeOfCreation         JobField = "TIME_OF_CREATION"
	JobTimeOfLastModification JobField = "TIME_OF_LAST_MODIFICATION"
	JobTimeOfCompletion       JobField = "TIME_OF_COMPLETION"
	JobStateProcessingFailed  JobField = "STATE_PROCESSING_FAILED"
	JobStateDeliveringFailed  JobField = "STATE_DELIVERING_FAILED"
	JobCreationFailed         JobField = "JOB_CREATION_FAILED"
	JobPreviewOnly            JobField = "PREVIEW_ONLY"
	JobWithFatalError         JobField = "WITH_FATAL_ERROR"
	// JobRecordID selects jobs holding an item for a record id, using In.
	JobRecordID JobField = "RECORD_ID"
)

// JobFields lists all job fields.
var JobFields = []JobField{JobID, JobSpecification, JobSinkID, JobTimeOfCreation, JobTimeOfLastModification,
	JobTimeOfCompletion, JobStateProcessingFailed, JobStateDeliveringFailed, JobCreationFailed, JobPreviewOnly,
	JobWithFatalError, JobRecordID}

// ChunkField is a field chunks can be listed by.
type ChunkField string

// Chunk fields.
const (
	ChunkJobID            ChunkField = "JOB_ID"
	ChunkID               ChunkField = "CHUNK_ID"
	ChunkTimeOfCreation   ChunkField = "TIME_OF_CREATION"
	ChunkTimeOfCompletion ChunkField = "TIME_OF_COMPLETION"
)

// ChunkFields lists all chunk fields.
var ChunkFields = []ChunkField{ChunkJobID, ChunkID, ChunkTimeOfCreation, ChunkTimeOfCompletion}

// ItemField is a field items can be listed by.
type ItemField string

// Item fields.
const (
	ItemID                 ItemField = "ITEM_ID"
	ItemChunkID            ItemField = "CHUNK_ID"
	ItemJobID              ItemField = "JOB_ID"
	ItemTimeOfCreation     ItemField = "TIME_OF_CREATION"
	ItemStateFailed        ItemField = "STATE_FAILED"
	ItemStateIgnored       ItemField = "STATE_IGNORED"
	ItemPartitioningFailed ItemField = "PARTITIONING_FAILED"
	ItemProcessingFailed   ItemField = "PROCESSING_FAILED"
	ItemDeliveryFailed     ItemField = "DELIVERY_FAILED"
)

// ItemFields lists all item fields.
var ItemFields = []ItemField{ItemID, ItemChunkID, ItemJobID, ItemTimeOfCreation, ItemStateFailed,
	ItemStateIgnored, ItemPartitioningFailed, ItemProcessingFailed, ItemDeliveryFailed}

// ParseField returns the field in fields named s.
func ParseField[F Field](fields []F, s string) (F, bool) {
	for _, f := range fields {
		if string(f) == s {
			return f, true
		}
	}
	var zero F
	return zero, false
}

// JobCriteria selects jobs.
type JobCriteria = ListCriteria[JobField]

// ChunkCriteria selects chunks.
type ChunkCriteria = ListCriteria[ChunkField]

// ItemCriteria selects items.
type ItemCriteria = ListCriteria[ItemField]
