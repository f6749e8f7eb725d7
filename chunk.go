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

// ItemStatus is the outcome of a single item in a phase.
type ItemStatus string

// Item statuses.
const (
	StatusSuccess ItemStatus = "SUCCESS"
	StatusFailure ItemStatus = "FAILURE"
	StatusIgnore  ItemStatus = "IGNORE"
)

// ItemType describes the payload of a ChunkItem.
type ItemType string

// Item types.
const (
	TypeUnknown     ItemType = "UNKNOWN"
	TypeMarcXchange ItemType = "MARCXCHANGE"
	TypeString      ItemType = "STRING"
)

// ChunkItem is one record's slot within a chunk.
type ChunkItem struct {
	ID          int          `json:"id"`
	Data        []byte       `json:"data"`
	Status      ItemStatus   `json:"status"`
	Type        ItemType     `json:"type"`
	Encoding    string       `json:"encoding,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// NewSuccessfulItem returns a SUCCESS item.
func NewSuccessfulItem(id int, data []byte, typ ItemType) *ChunkItem {
	return &ChunkItem{ID: id, Data: data, Status: StatusSuccess, Type: typ}
}

// NewFailedItem returns a FAILURE item holding the raw data that could not be
// handled.
func NewFailedItem(id int, data []byte, diags ...Diagnostic) *ChunkItem {
	return &ChunkItem{ID: id, Data: data, Status: StatusFailure, Type: TypeUnknown, Diagnostics: diags}
}

// NewIgnoredItem returns an IGNORE item with the reason as its data.
func NewIgnoredItem(id int, reason string) *ChunkItem {
	return &ChunkItem{ID: id, Data: []byte(reason), Status: StatusIgnore, Type: TypeString}
}

// AppendDiagnostics adds diagnostics to the item.
func (c *ChunkItem) AppendDiagnostics(diags ...Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, diags...)
}

// Phase is a stage of a job's life.
type Phase string

// Phases.
const (
	PhasePartitioning Phase = "PARTITIONING"
	PhaseProcessing   Phase = "PROCESSING"
	PhaseDelivering   Phase = "DELIVERING"
)

// Phases lists all phases in lifecycle order.
var Phases = []Phase{PhasePartitioning, PhaseProcessing, PhaseDelivering}

// PhaseState holds the item counters and timing of a single phase.
type PhaseState struct {
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Ignored   int        `json:"ignored"`
	Begin     *time.Time `json:"begin,omitempty"`
	End       *time.Time `json:"end,omitempty"`
}

// StateChange is a delta applied to one phase of a State.
type StateChange struct {
	Phase     Phase
	Succeeded int
	Failed    int
	Ignored   int
	Begin     *time.Time
	End       *time.Time
}

// State tracks per-phase counters for a job, chunk or item.
type State struct {
	Phases map[Phase]*PhaseState `json:"phases"`
}

// NewState returns a State with all phases present.
func NewState() *State {
	s := &State{Phases: make(map[Phase]*PhaseState, len(Phases))}
	for _, p := range Phases {
		s.Phases[p] = &PhaseState{}
	}
	return s
}

// Update applies change to the state. Begin is only set once, End is always
// overwritten.
func (s *State) Update(change StateChange) {
	if s.Phases == nil {
		s.Phases = make(map[Phase]*PhaseState)
	}
	ps, ok := s.Phases[change.Phase]
	if !ok {
		ps = &PhaseState{}
		s.Phases[change.Phase] = ps
	}
	ps.Succeeded += change.Succeeded
	ps.Failed += change.Failed
	ps.Ignored += change.Ignored
	if ps.Begin == nil && change.Begin != nil {
		ps.Begin = change.Begin
	}
	if change.End != nil {
		ps.End = change.End
	}
}

// Phase returns the state of phase p, never nil.
func (s *State) Phase(p Phase) PhaseState {
	if s == nil || s.Phases[p] == nil {
		return PhaseState{}
	}
	return *s.Phases[p]
}

// Failed reports whether any phase has failed items.
func (s *State) Failed() bool {
	for _, p := range Phases {
		if s.Phase(p).Failed > 0 {
			return true
		}
	}
	return false
}

// Ignored reports whether any phase has ignored items.
func (s *State) Ignored() bool {
	for _, p := range Phases {
		if s.Phase(p).Ignored > 0 {
			return true
		}
	}
	return false
}

// Chunk is a bounded batch of items belonging to one job.
type Chunk struct {
	JobID        int64        `json:"jobId"`
	ID           int64        `json:"id"`
	DataFileID   string       `json:"dataFileId,omitempty"`
	Keys         []string     `json:"keys"`
	Items        []*ChunkItem `json:"items"`
	State        *State       `json:"state"`
	TimeOfCreate time.Time    `json:"timeOfCreation"`
	TimeOfDone   *time.Time   `json:"timeOfCompletion,omitempty"`
}

// Size returns the number of items in the chunk.
func (c *Chunk) Size() int { return len(c.Items) }
