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
	"io"
	"strings"

	"github.com/pkg/errors"
)

// FileStore holds the raw data files of jobs.
type FileStore interface {
	// File opens the data file with the given id. The caller must close it.
	File(ctx context.Context, fileID string) (io.ReadCloser, error)
	// ByteSize returns the size of the data file with the given id.
	ByteSize(ctx context.Context, fileID string) (int64, error)
}

// FileStoreURNPrefix is the scheme and namespace of data file references.
const FileStoreURNPrefix = "urn:dataio-fs:"

// FileStoreURN references a file in a FileStore.
type FileStoreURN struct {
	FileID string
}

// ParseFileStoreURN parses references of the form urn:dataio-fs:<file id>.
func ParseFileStoreURN(s string) (FileStoreURN, error) {
	if !strings.HasPrefix(s, FileStoreURNPrefix) {
		return FileStoreURN{}, errors.Errorf("'%s' is not a %s URN", s, FileStoreURNPrefix)
	}
	id := s[len(FileStoreURNPrefix):]
	if id == "" || strings.ContainsAny(id, " /") {
		return FileStoreURN{}, errors.Errorf("'%s' has invalid file id '%s'", s, id)
	}
	return FileStoreURN{FileID: id}, nil
}

func (u FileStoreURN) String() string {
	return FileStoreURNPrefix + u.FileID
}
