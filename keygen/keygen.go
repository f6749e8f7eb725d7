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

// Package keygen holds the sequence analysis key generators which decide
// which chunks must be processed in order relative to each other. Chunks
// sharing a key are never processed concurrently.
package keygen

import (
	"sort"
	"strconv"

	"github.com/dbcdk/dataio"
)

// Sink keys every chunk by the sink it is delivered to, serializing all
// chunks bound for that sink.
type Sink struct {
	key string
}

// NewSink returns a Sink generator for sink.
func NewSink(sink *dataio.Sink) *Sink {
	return &Sink{key: strconv.FormatInt(sink.ID, 10)}
}

// GenerateKeys implements dataio.KeyGenerator.
func (s *Sink) GenerateKeys(infos []*dataio.RecordInfo) []string {
	return []string{s.key}
}

// NoOrder gives chunks no keys, so they may be processed in any order.
type NoOrder struct{}

// GenerateKeys implements dataio.KeyGenerator.
func (NoOrder) GenerateKeys(infos []*dataio.RecordInfo) []string {
	return []string{}
}

// RecordInfo keys chunks by the ids and parent ids of their records, so that
// chunks touching the same records are processed in order.
type RecordInfo struct{}

// GenerateKeys implements dataio.KeyGenerator. Keys are unique and sorted.
func (RecordInfo) GenerateKeys(infos []*dataio.RecordInfo) []string {
	set := make(map[string]struct{})
	for _, info := range infos {
		if info == nil {
			continue
		}
		if info.ID != "" {
			set[info.ID] = struct{}{}
		}
		if info.ParentID != "" {
			set[info.ParentID] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// For picks the generator for a job. Sequence analysis requires a sink; if
// it is required and sink is nil, For returns nil and the job cannot be
// sequenced.
func For(sequenceAnalysis bool, sink *dataio.Sink) dataio.KeyGenerator {
	if !sequenceAnalysis {
		return NoOrder{}
	}
	if sink == nil {
		return nil
	}
	return NewSink(sink)
}
