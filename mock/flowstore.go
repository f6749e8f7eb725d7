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

package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// FlowStore is an in-memory dataio.FlowStore. Setting one of the Err fields
// makes the corresponding lookup fail with it. Calls records the methods
// invoked, in order.
type FlowStore struct {
	mu sync.Mutex

	Submitters  []*dataio.Submitter
	FlowBinders []*dataio.FlowBinder
	Flows       map[int64]*dataio.Flow
	Sinks       map[int64]*dataio.Sink

	SubmitterErr  error
	FlowBinderErr error
	FlowErr       error
	SinkErr       error

	Calls []string
}

func (f *FlowStore) called(format string, args ...interface{}) {
	f.mu.Lock()
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
}

// SubmitterByNumber implements dataio.FlowStore.
func (f *FlowStore) SubmitterByNumber(ctx context.Context, number int64) (*dataio.Submitter, error) {
	f.called("SubmitterByNumber(%d)", number)
	if f.SubmitterErr != nil {
		return nil, f.SubmitterErr
	}
	for _, s := range f.Submitters {
		if s.Content.Number == number {
			return s, nil
		}
	}
	return nil, errors.Wrapf(dataio.ErrNotFound, "submitter number %d", number)
}

// Submitter implements dataio.FlowStore.
func (f *FlowStore) Submitter(ctx context.Context, id int64) (*dataio.Submitter, error) {
	f.called("Submitter(%d)", id)
	if f.SubmitterErr != nil {
		return nil, f.SubmitterErr
	}
	for _, s := range f.Submitters {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.Wrapf(dataio.ErrNotFound, "submitter %d", id)
}

// FlowBinder implements dataio.FlowStore. A binder without submitter ids
// matches any submitter.
func (f *FlowStore) FlowBinder(ctx context.Context, packaging, format, charset string, submitterNumber int64, destination string) (*dataio.FlowBinder, error) {
	f.called("FlowBinder(%s, %s, %s, %d, %s)", packaging, format, charset, submitterNumber, destination)
	if f.FlowBinderErr != nil {
		return nil, f.FlowBinderErr
	}
	var submitterID int64 = -1
	for _, s := range f.Submitters {
		if s.Content.Number == submitterNumber {
			submitterID = s.ID
		}
	}
	for _, fb := range f.FlowBinders {
		c := fb.Content
		if c.Packaging != packaging || c.Format != format || c.Charset != charset || c.Destination != destination {
			continue
		}
		if len(c.SubmitterIDs) == 0 {
			return fb, nil
		}
		for _, id := range c.SubmitterIDs {
			if id == submitterID {
				return fb, nil
			}
		}
	}
	return nil, errors.Wrap(dataio.ErrNotFound, "flow binder")
}

// Flow implements dataio.FlowStore.
func (f *FlowStore) Flow(ctx context.Context, id int64) (*dataio.Flow, error) {
	f.called("Flow(%d)", id)
	if f.FlowErr != nil {
		return nil, f.FlowErr
	}
	if flow, ok := f.Flows[id]; ok {
		return flow, nil
	}
	return nil, errors.Wrapf(dataio.ErrNotFound, "flow %d", id)
}

// Sink implements dataio.FlowStore.
func (f *FlowStore) Sink(ctx context.Context, id int64) (*dataio.Sink, error) {
	f.called("Sink(%d)", id)
	if f.SinkErr != nil {
		return nil, f.SinkErr
	}
	if sink, ok := f.Sinks[id]; ok {
		return sink, nil
	}
	return nil, errors.Wrapf(dataio.ErrNotFound, "sink %d", id)
}
