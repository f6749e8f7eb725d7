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
	"io"
	"os"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/keygen"
	"github.com/dbcdk/dataio/partitioner"
	"github.com/pkg/errors"
)

// PartitioningParam holds the open data file of a job and the partitioner
// reading it. Close must be called on every path once the param has been
// created, whether or not partitioning took place.
type PartitioningParam struct {
	job      *dataio.Job
	splitter dataio.RecordSplitter
	include  []uint64

	dataFileID  string
	data        io.ReadCloser
	partitioner partitioner.DataPartitioner
	keyGen      dataio.KeyGenerator
	previewOnly bool
	diagnostics []dataio.Diagnostic

	log dataio.Logger
}

// PartitioningOption configures a PartitioningParam.
type PartitioningOption func(p *PartitioningParam)

// OptIncludePositions restricts partitioning to the records at the given
// 0-based positions.
func OptIncludePositions(positions ...uint64) PartitioningOption {
	return func(p *PartitioningParam) {
		p.include = positions
	}
}

// OptKeyGenerator sets the key generator handed to chunk assembly. The
// default keys chunks by the ids of their records.
func OptKeyGenerator(kg dataio.KeyGenerator) PartitioningOption {
	return func(p *PartitioningParam) {
		p.keyGen = kg
	}
}

// OptPartitioningLogger sets the logger.
func OptPartitioningLogger(l dataio.Logger) PartitioningOption {
	return func(p *PartitioningParam) {
		p.log = l
	}
}

// NewPartitioningParam opens the data file of job and creates the
// partitioner for splitter. Failures are reported as FATAL diagnostics.
// Nothing is done for jobs which already have a fatal error.
func NewPartitioningParam(ctx context.Context, job *dataio.Job, splitter dataio.RecordSplitter,
	fileStore dataio.FileStore, flowStore dataio.FlowStore, opts ...PartitioningOption) (*PartitioningParam, error) {
	if job == nil {
		return nil, errors.New("nil job")
	}
	if fileStore == nil || flowStore == nil {
		return nil, errors.New("nil file-store or flow-store")
	}
	p := &PartitioningParam{
		job:      job,
		splitter: splitter,
		keyGen:   keygen.RecordInfo{},
		log:      dataio.NopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if job.FatalError {
		return p, nil
	}
	p.openDataFile(ctx, fileStore)
	p.createPartitioner()
	if p.partitioner == nil {
		p.Close()
		p.data = nil
		return p, nil
	}
	p.previewOnly = p.canBePreviewOnly() && p.submitterDisabled(ctx, flowStore)
	return p, nil
}

func (p *PartitioningParam) fatal(msg string, cause error) {
	p.diagnostics = append(p.diagnostics, dataio.NewFatalDiagnostic(msg, cause))
}

// openDataFile opens the data file directly if the reference is a path to
// an existing file, otherwise through the file-store.
func (p *PartitioningParam) openDataFile(ctx context.Context, fileStore dataio.FileStore) {
	ref := p.job.Specification.DataFile
	if _, err := os.Stat(ref); err == nil {
		f, err := os.Open(ref)
		if err != nil {
			p.fatal(fmt.Sprintf("Could not get input stream for data file: %s", ref), err)
			return
		}
		p.data = f
		return
	}
	urn, err := dataio.ParseFileStoreURN(ref)
	if err != nil {
		p.fatal(fmt.Sprintf("Invalid file-store service URN: %s", ref), err)
		return
	}
	p.dataFileID = urn.FileID
	rc, err := fileStore.File(ctx, urn.FileID)
	if err != nil {
		p.fatal(fmt.Sprintf("Could not get input stream for data file: %s", ref), err)
		return
	}
	p.data = rc
}

func (p *PartitioningParam) createPartitioner() {
	if p.data == nil {
		return
	}
	dp, err := partitioner.New(p.splitter, p.data, p.job.Specification.Charset, partitioner.OptLogger(p.log))
	if err != nil {
		if use, ok := err.(*partitioner.UnknownSplitterError); ok {
			p.fatal(use.Error(), nil)
		} else {
			p.fatal(fmt.Sprintf("Could not create data partitioner: %v", err), err)
		}
		return
	}
	if len(p.include) > 0 {
		p.partitioner = partitioner.NewIncludeFilter(dp, p.include...)
		return
	}
	p.partitioner = dp
}

func (p *PartitioningParam) canBePreviewOnly() bool {
	t := p.job.Specification.Type
	return t == dataio.JobTypeTransient || t == dataio.JobTypePersistent
}

func (p *PartitioningParam) submitterDisabled(ctx context.Context, flowStore dataio.FlowStore) bool {
	ref := p.job.FlowStoreReferences.Get(dataio.RefSubmitter)
	if ref == nil {
		return false
	}
	s, err := flowStore.Submitter(ctx, ref.ID)
	if err != nil {
		p.fatal(fmt.Sprintf("Could not retrieve submitter: %d", ref.ID), err)
		return true
	}
	return !s.Content.Enabled
}

// Job returns the job being partitioned.
func (p *PartitioningParam) Job() *dataio.Job { return p.job }

// DataFileID returns the file-store id of the data file, or "" if it was
// opened from the local filesystem or could not be resolved.
func (p *PartitioningParam) DataFileID() string { return p.dataFileID }

// Partitioner returns the partitioner, or nil if it could not be created.
func (p *PartitioningParam) Partitioner() partitioner.DataPartitioner { return p.partitioner }

// KeyGenerator returns the key generator for chunks of this job.
func (p *PartitioningParam) KeyGenerator() dataio.KeyGenerator { return p.keyGen }

// PreviewOnly reports whether the job should only be previewed: it is of a
// type which can be previewed and its submitter is disabled.
func (p *PartitioningParam) PreviewOnly() bool { return p.previewOnly }

// Diagnostics returns the diagnostics of failed steps.
func (p *PartitioningParam) Diagnostics() []dataio.Diagnostic { return p.diagnostics }

// Close closes the data file. Close failures are logged.
func (p *PartitioningParam) Close() {
	if p.data == nil {
		return
	}
	if err := p.data.Close(); err != nil {
		p.log.Printf("Unable to close data file of job %d: %v", p.job.ID, err)
	}
}
