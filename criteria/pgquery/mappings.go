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

package pgquery

import "github.com/dbcdk/dataio/criteria"

func phaseFailed(phase string) Verbatim {
	return Verbatim{SQL: "(state->'phases'->'" + phase + "'->>'failed')::int > 0"}
}

// JobMappings maps job fields to the job table.
var JobMappings = map[criteria.JobField]Mapping{
	criteria.JobID:                     Column{Name: "id", Convert: Int},
	criteria.JobSpecification:          JSONB{Name: "specification"},
	criteria.JobSinkID:                 Column{Name: "sinkId", Convert: Int},
	criteria.JobTimeOfCreation:         Column{Name: "timeOfCreation", Convert: Timestamp},
	criteria.JobTimeOfLastModification: Column{Name: "timeOfLastModification", Convert: Timestamp},
	criteria.JobTimeOfCompletion:       Column{Name: "timeOfCompletion", Convert: Timestamp},
	criteria.JobStateProcessingFailed:  phaseFailed("PROCESSING"),
	criteria.JobStateDeliveringFailed:  phaseFailed("DELIVERING"),
	criteria.JobCreationFailed:         phaseFailed("PARTITIONING"),
	criteria.JobPreviewOnly:            Verbatim{SQL: "previewOnly"},
	criteria.JobWithFatalError:         Verbatim{SQL: "fatalError"},
	criteria.JobRecordID:               SubSelectJSON{Name: "id", Select: "jobId", Table: "item", Column: "recordInfo", Key: "id"},
}

// ChunkMappings maps chunk fields to the chunk table.
var ChunkMappings = map[criteria.ChunkField]Mapping{
	criteria.ChunkJobID:            Column{Name: "jobId", Convert: Int},
	criteria.ChunkID:               Column{Name: "id", Convert: Int},
	criteria.ChunkTimeOfCreation:   Column{Name: "timeOfCreation", Convert: Timestamp},
	criteria.ChunkTimeOfCompletion: Column{Name: "timeOfCompletion", Convert: Timestamp},
}

// ItemMappings maps item fields to the item table.
var ItemMappings = map[criteria.ItemField]Mapping{
	criteria.ItemID:                 Column{Name: "id", Convert: Int},
	criteria.ItemChunkID:            Column{Name: "chunkId", Convert: Int},
	criteria.ItemJobID:              Column{Name: "jobId", Convert: Int},
	criteria.ItemTimeOfCreation:     Column{Name: "timeOfCreation", Convert: Timestamp},
	criteria.ItemStateFailed:        Verbatim{SQL: "(state->'phases' @> '{\"PARTITIONING\":{\"failed\":1}}' OR state->'phases' @> '{\"PROCESSING\":{\"failed\":1}}' OR state->'phases' @> '{\"DELIVERING\":{\"failed\":1}}')"},
	criteria.ItemStateIgnored:       Verbatim{SQL: "(state->'phases' @> '{\"PARTITIONING\":{\"ignored\":1}}' OR state->'phases' @> '{\"PROCESSING\":{\"ignored\":1}}' OR state->'phases' @> '{\"DELIVERING\":{\"ignored\":1}}')"},
	criteria.ItemPartitioningFailed: phaseFailed("PARTITIONING"),
	criteria.ItemProcessingFailed:   phaseFailed("PROCESSING"),
	criteria.ItemDeliveryFailed:     phaseFailed("DELIVERING"),
}
