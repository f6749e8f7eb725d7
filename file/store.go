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

// Package file implements a dataio.FileStore on a local directory, and
// reads batches of files from a directory for the command line tools.
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/dbcdk/dataio"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var _ dataio.FileStore = &Store{}

// Store keeps data files in a directory, one file per id.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating dir if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(fileID string) (string, error) {
	if fileID == "" || fileID != filepath.Base(fileID) {
		return "", errors.Errorf("invalid file id '%s'", fileID)
	}
	return filepath.Join(s.dir, fileID), nil
}

// Add copies r into a new file and returns its URN.
func (s *Store) Add(ctx context.Context, r io.Reader) (dataio.FileStoreURN, error) {
	id := uuid.New().String()
	f, err := os.OpenFile(filepath.Join(s.dir, id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return dataio.FileStoreURN{}, errors.Wrap(err, "creating data file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return dataio.FileStoreURN{}, errors.Wrapf(err, "writing data file %s", id)
	}
	if err := f.Close(); err != nil {
		return dataio.FileStoreURN{}, errors.Wrapf(err, "closing data file %s", id)
	}
	return dataio.FileStoreURN{FileID: id}, nil
}

// File implements dataio.FileStore.
func (s *Store) File(ctx context.Context, fileID string) (io.ReadCloser, error) {
	p, err := s.path(fileID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(dataio.ErrNotFound, "data file %s", fileID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening data file %s", fileID)
	}
	return f, nil
}

// ByteSize implements dataio.FileStore.
func (s *Store) ByteSize(ctx context.Context, fileID string) (int64, error) {
	p, err := s.path(fileID)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return 0, errors.Wrapf(dataio.ErrNotFound, "data file %s", fileID)
	} else if err != nil {
		return 0, errors.Wrapf(err, "statting data file %s", fileID)
	}
	return info.Size(), nil
}
