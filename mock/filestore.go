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
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
)

// FileStore is an in-memory dataio.FileStore. Sizes overrides the byte size
// reported for a file.
type FileStore struct {
	mu sync.Mutex

	Files map[string][]byte
	Sizes map[string]int64

	FileErr     error
	ByteSizeErr error

	// Opened and Closed count the streams handed out and closed.
	Opened int
	Closed int
}

// File implements dataio.FileStore.
func (f *FileStore) File(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if f.FileErr != nil {
		return nil, f.FileErr
	}
	data, ok := f.Files[fileID]
	if !ok {
		return nil, errors.Wrapf(dataio.ErrNotFound, "file %s", fileID)
	}
	f.mu.Lock()
	f.Opened++
	f.mu.Unlock()
	return &readCloser{Reader: bytes.NewReader(data), fs: f}, nil
}

// ByteSize implements dataio.FileStore.
func (f *FileStore) ByteSize(ctx context.Context, fileID string) (int64, error) {
	if f.ByteSizeErr != nil {
		return 0, f.ByteSizeErr
	}
	if size, ok := f.Sizes[fileID]; ok {
		return size, nil
	}
	data, ok := f.Files[fileID]
	if !ok {
		return 0, errors.Wrapf(dataio.ErrNotFound, "file %s", fileID)
	}
	return int64(len(data)), nil
}

type readCloser struct {
	*bytes.Reader
	fs *FileStore
}

func (r *readCloser) Close() error {
	r.fs.mu.Lock()
	r.fs.Closed++
	r.fs.mu.Unlock()
	return nil
}
