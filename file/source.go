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

package file

import (
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
)

// NamedReadCloser is a file handed out by a RawSource.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource hands out the files of a directory, or a single file, one at a
// time. It is safe for concurrent use.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource returns a RawSource over pathname, which may be a file or a
// directory. Directories are not descended into.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(infos))
		for _, info = range infos {
			if info.IsDir() {
				continue
			}
			s.files = append(s.files, path.Join(pathname, info.Name()))
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

// Len returns the number of files.
func (s *RawSource) Len() int { return len(s.files) }

type namedFile struct {
	*os.File
}

func (m *namedFile) Name() string {
	return filepath.Base(m.File.Name())
}

// NextReader opens the next file. It returns io.EOF when all files have been
// handed out.
func (s *RawSource) NextReader() (NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return &namedFile{file}, nil
}
