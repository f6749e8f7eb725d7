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

package leveldb

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// Entities is the set of flow-store entities read by Load.
type Entities struct {
	Submitters  []*dataio.Submitter  `json:"submitters"`
	Flows       []*dataio.Flow       `json:"flows"`
	Sinks       []*dataio.Sink       `json:"sinks"`
	FlowBinders []*dataio.FlowBinder `json:"flowBinders"`
}

// Len returns the total number of entities.
func (e *Entities) Len() int {
	return len(e.Submitters) + len(e.Flows) + len(e.Sinks) + len(e.FlowBinders)
}

// Load reads a JSON encoded Entities from r and puts all of them. Flow
// binders are put last, so they may refer to the ids of entities given
// explicitly in the same document.
func (fs *FlowStore) Load(ctx context.Context, r io.Reader) (*Entities, error) {
	e := &Entities{}
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return nil, errors.Wrap(err, "decoding entities")
	}
	for _, s := range e.Submitters {
		if err := fs.PutSubmitter(ctx, s); err != nil {
			return nil, errors.Wrapf(err, "putting submitter %d", s.Content.Number)
		}
	}
	for _, f := range e.Flows {
		if err := fs.PutFlow(ctx, f); err != nil {
			return nil, errors.Wrapf(err, "putting flow '%s'", f.Content.Name)
		}
	}
	for _, s := range e.Sinks {
		if err := fs.PutSink(ctx, s); err != nil {
			return nil, errors.Wrapf(err, "putting sink '%s'", s.Content.Name)
		}
	}
	for _, b := range e.FlowBinders {
		if err := fs.PutFlowBinder(ctx, b); err != nil {
			return nil, errors.Wrapf(err, "putting flow binder '%s'", b.Content.Name)
		}
	}
	return e, nil
}
