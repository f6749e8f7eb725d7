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

// Package dataio is the core of the dataIO job-store: it turns submitted job
// files into chunks of items that processors and sinks can work on.
//
// A job goes through the following stages when it is added.
//
// 1. Resolution
//
//    The job specification (packaging, format, charset, destination,
//    submitter and a data file reference) is resolved against the FlowStore.
//    Submitter, flow-binder, flow and sink lookups each either succeed or
//    leave a FATAL Diagnostic behind; a job with fatal diagnostics is stored
//    but never partitioned. See jobstore.AddJobParam.
//
// 2. Partitioning
//
//    The data file is fetched from the FileStore and handed to a
//    partitioner chosen by the flow-binder's RecordSplitter. Partitioners
//    wrap record readers (lineformat, marcxchange, iso2709) and produce one
//    ChunkItem per record. A broken record becomes a failed item rather than
//    aborting the job where the format allows it.
//
// 3. Chunking
//
//    Items are collected into Chunks of bounded size. Each chunk is given
//    sequence analysis keys by a KeyGenerator so that delivery can respect
//    dependencies between records.
//
// 4. Listing
//
//    Stored jobs, chunks and items are queried using the criteria package,
//    either evaluated directly against a store or translated to SQL by
//    criteria/pgquery.
package dataio
