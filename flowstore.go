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

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by stores when a looked up entity does not exist.
var ErrNotFound = errors.New("not found")

// SubmitterContent is the configurable part of a Submitter.
type SubmitterContent struct {
	Number      int64     `json:"number"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Enabled     bool      `json:"enabled"`
}

// Submitter is a flow-store entity identifying an originator of jobs.
type Submitter struct {
	ID      int64            `json:"id"`
	Version int64            `json:"version"`
	Content SubmitterContent `json:"content"`
}

// FlowBinderContent maps a job's (packaging, format, charset, submitter,
// destination) tuple to a flow and a sink.
type FlowBinderContent struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Packaging        string         `json:"packaging"`
	Format           string         `json:"format"`
	Charset          string         `json:"charset"`
	Destination      string         `json:"destination"`
	Priority         Priority       `json:"priority,omitempty"`
	RecordSplitter   RecordSplitter `json:"recordSplitter"`
	SequenceAnalysis bool           `json:"sequenceAnalysis"`
	FlowID           int64          `json:"flowId"`
	SinkID           int64          `json:"sinkId"`
	SubmitterIDs     []int64        `json:"submitterIds"`
}

// FlowBinder is a flow-store entity.
type FlowBinder struct {
	ID      int64             `json:"id"`
	Version int64             `json:"version"`
	Content FlowBinderContent `json:"content"`
}

// FlowContent is the configurable part of a Flow.
type FlowContent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Flow is a flow-store entity describing how items are processed.
type Flow struct {
	ID      int64       `json:"id"`
	Version int64       `json:"version"`
	Content FlowContent `json:"content"`
}

// SinkType names the kind of sink items are delivered to.
type SinkType string

// Sink types with partitioning specific behaviour.
const (
	SinkTypeDummy    SinkType = "DUMMY"
	SinkTypeES       SinkType = "ES"
	SinkTypeMarcConv SinkType = "MARCCONV"
)

// SinkContent is the configurable part of a Sink.
type SinkContent struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Queue       string   `json:"queue"`
	SinkType    SinkType `json:"sinkType,omitempty"`
}

// Sink is a flow-store entity describing an item destination.
type Sink struct {
	ID      int64       `json:"id"`
	Version int64       `json:"version"`
	Content SinkContent `json:"content"`
}

// FlowStore is the configuration registry that jobs are resolved against.
// Every method may fail; callers translate failures into diagnostics.
type FlowStore interface {
	SubmitterByNumber(ctx context.Context, number int64) (*Submitter, error)
	Submitter(ctx context.Context, id int64) (*Submitter, error)
	FlowBinder(ctx context.Context, packaging, format, charset string, submitterNumber int64, destination string) (*FlowBinder, error)
	Flow(ctx context.Context, id int64) (*Flow, error)
	Sink(ctx context.Context, id int64) (*Sink, error)
}

// FlowStoreError is returned by FlowStore implementations when the registry
// answered with something other than the requested entity.
type FlowStoreError struct {
	StatusCode  int
	Description string
}

func (e *FlowStoreError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("flow-store returned status %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("flow-store returned status %d", e.StatusCode)
}

// NotFound reports whether the error signals a missing entity.
func (e *FlowStoreError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// RefElement names an entry of FlowStoreReferences.
type RefElement string

// Reference elements.
const (
	RefSubmitter  RefElement = "SUBMITTER"
	RefFlowBinder RefElement = "FLOW_BINDER"
	RefFlow       RefElement = "FLOW"
	RefSink       RefElement = "SINK"
)

// Reference is a denormalized id/version/name triple of a flow-store entity.
type Reference struct {
	ID      int64  `json:"id"`
	Version int64  `json:"version"`
	Name    string `json:"name"`
}

// FlowStoreReferences snapshots the flow-store entities a job was resolved
// against.
type FlowStoreReferences struct {
	References map[RefElement]*Reference `json:"references"`
}

// Set stores ref under element.
func (f *FlowStoreReferences) Set(element RefElement, ref *Reference) {
	if f.References == nil {
		f.References = make(map[RefElement]*Reference)
	}
	f.References[element] = ref
}

// Get returns the reference stored under element, or nil.
func (f FlowStoreReferences) Get(element RefElement) *Reference {
	return f.References[element]
}

// Len returns the number of references held.
func (f FlowStoreReferences) Len() int {
	return len(f.References)
}
