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
	"fmt"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/keygen"
	"github.com/pkg/errors"
)

// AddJobParam resolves a job specification against the flow-store. Lookup
// failures never abort resolution: each one adds a FATAL diagnostic and
// leaves the entity nil, and lookups depending on it are skipped.
type AddJobParam struct {
	spec dataio.JobSpecification

	submitter  *dataio.Submitter
	flowBinder *dataio.FlowBinder
	flow       *dataio.Flow
	sink       *dataio.Sink

	refs        dataio.FlowStoreReferences
	keyGen      dataio.KeyGenerator
	diagnostics []dataio.Diagnostic
}

// NewAddJobParam resolves spec using flowStore. It only fails if flowStore
// is nil.
func NewAddJobParam(ctx context.Context, spec dataio.JobSpecification, flowStore dataio.FlowStore) (*AddJobParam, error) {
	if flowStore == nil {
		return nil, errors.New("nil flow-store")
	}
	p := &AddJobParam{spec: spec}
	if spec.DataFile == "" {
		p.fatal(fmt.Sprintf("Missing data file in job specification: %s", spec), nil)
		return p, nil
	}
	p.lookupSubmitter(ctx, flowStore)
	p.lookupFlowBinder(ctx, flowStore)
	if p.flowBinder != nil {
		p.lookupFlow(ctx, flowStore)
		p.lookupSink(ctx, flowStore)
		p.keyGen = keygen.For(p.flowBinder.Content.SequenceAnalysis, p.sink)
	}
	return p, nil
}

func (p *AddJobParam) fatal(msg string, cause error) {
	p.diagnostics = append(p.diagnostics, dataio.NewFatalDiagnostic(msg, cause))
}

// lookupError adds the diagnostic for a failed lookup. Errors reported by
// the flow-store itself carry a description which is used as the message.
func (p *AddJobParam) lookupError(msg string, err error) {
	if fse, ok := errors.Cause(err).(*dataio.FlowStoreError); ok && fse.Description != "" {
		msg = fse.Description
	}
	p.fatal(msg, err)
}

func (p *AddJobParam) lookupSubmitter(ctx context.Context, fs dataio.FlowStore) {
	s, err := fs.SubmitterByNumber(ctx, p.spec.SubmitterID)
	if err != nil {
		p.lookupError(fmt.Sprintf("Could not retrieve submitter with submitter number: %d", p.spec.SubmitterID), err)
		return
	}
	p.submitter = s
	p.refs.Set(dataio.RefSubmitter, &dataio.Reference{ID: s.ID, Version: s.Version, Name: s.Content.Name})
}

func (p *AddJobParam) lookupFlowBinder(ctx context.Context, fs dataio.FlowStore) {
	s := p.spec
	fb, err := fs.FlowBinder(ctx, s.Packaging, s.Format, s.Charset, s.SubmitterID, s.Destination)
	if err != nil {
		p.lookupError(fmt.Sprintf("Could not retrieve FlowBinder for job specification: %s", s), err)
		return
	}
	p.flowBinder = fb
	p.refs.Set(dataio.RefFlowBinder, &dataio.Reference{ID: fb.ID, Version: fb.Version, Name: fb.Content.Name})
}

func (p *AddJobParam) lookupFlow(ctx context.Context, fs dataio.FlowStore) {
	id := p.flowBinder.Content.FlowID
	f, err := fs.Flow(ctx, id)
	if err != nil {
		p.lookupError(fmt.Sprintf("Could not retrieve Flow with id: %d", id), err)
		return
	}
	p.flow = f
	p.refs.Set(dataio.RefFlow, &dataio.Reference{ID: f.ID, Version: f.Version, Name: f.Content.Name})
}

func (p *AddJobParam) lookupSink(ctx context.Context, fs dataio.FlowStore) {
	id := p.flowBinder.Content.SinkID
	s, err := fs.Sink(ctx, id)
	if err != nil {
		p.lookupError(fmt.Sprintf("Could not retrieve Sink with id: %d", id), err)
		return
	}
	p.sink = s
	p.refs.Set(dataio.RefSink, &dataio.Reference{ID: s.ID, Version: s.Version, Name: s.Content.Name})
}

// Specification returns the job specification being resolved.
func (p *AddJobParam) Specification() dataio.JobSpecification { return p.spec }

// Submitter returns the resolved submitter or nil.
func (p *AddJobParam) Submitter() *dataio.Submitter { return p.submitter }

// FlowBinder returns the resolved flow binder or nil.
func (p *AddJobParam) FlowBinder() *dataio.FlowBinder { return p.flowBinder }

// Flow returns the resolved flow or nil.
func (p *AddJobParam) Flow() *dataio.Flow { return p.flow }

// Sink returns the resolved sink or nil.
func (p *AddJobParam) Sink() *dataio.Sink { return p.sink }

// FlowStoreReferences returns references to the resolved entities.
func (p *AddJobParam) FlowStoreReferences() dataio.FlowStoreReferences { return p.refs }

// KeyGenerator returns the sequence analysis key generator. It is nil if no
// flow binder was resolved, or if sequence analysis is required and no sink
// was resolved.
func (p *AddJobParam) KeyGenerator() dataio.KeyGenerator { return p.keyGen }

// Diagnostics returns the diagnostics of failed lookups.
func (p *AddJobParam) Diagnostics() []dataio.Diagnostic { return p.diagnostics }

// RecordSplitter returns the record splitter of the flow binder, or "" if
// none was resolved.
func (p *AddJobParam) RecordSplitter() dataio.RecordSplitter {
	if p.flowBinder == nil {
		return ""
	}
	return p.flowBinder.Content.RecordSplitter
}

// Priority returns the job priority: the submitter's if set, else the flow
// binder's, else normal.
func (p *AddJobParam) Priority() dataio.Priority {
	if p.submitter != nil && p.submitter.Content.Priority != nil {
		return *p.submitter.Content.Priority
	}
	if p.flowBinder != nil && p.flowBinder.Content.Priority != 0 {
		return p.flowBinder.Content.Priority
	}
	return dataio.PriorityNormal
}
