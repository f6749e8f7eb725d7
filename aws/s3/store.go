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

// Package s3 implements a dataio.FileStore on an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/dbcdk/dataio"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var _ dataio.FileStore = &Store{}

// StoreOption is a functional option type for s3.Store.
type StoreOption func(s *Store)

// OptStoreRegion sets the AWS region of the bucket.
func OptStoreRegion(region string) StoreOption {
	return func(s *Store) {
		s.region = region
	}
}

// OptStorePrefix stores data files under prefix in the bucket.
func OptStorePrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// OptStoreClient uses client instead of creating one from a new session.
func OptStoreClient(client s3iface.S3API) StoreOption {
	return func(s *Store) {
		s.s3 = client
	}
}

// Store is a dataio.FileStore keeping one object per data file.
type Store struct {
	bucket string
	prefix string
	region string

	s3 s3iface.S3API
}

// NewStore returns a Store for bucket with the options applied.
func NewStore(bucket string, opts ...StoreOption) (*Store, error) {
	s := &Store{bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}
	if s.s3 == nil {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(s.region)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "getting new session")
		}
		s.s3 = s3.New(sess)
	}
	return s, nil
}

func (s *Store) key(fileID string) *string {
	return aws.String(s.prefix + fileID)
}

func notFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// Add uploads the content of r as a new data file and returns its URN.
func (s *Store) Add(ctx context.Context, r io.Reader) (dataio.FileStoreURN, error) {
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := ioutil.ReadAll(r)
		if err != nil {
			return dataio.FileStoreURN{}, errors.Wrap(err, "reading data file")
		}
		body = bytes.NewReader(data)
	}
	id := uuid.New().String()
	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(id),
		Body:   body,
	})
	if err != nil {
		return dataio.FileStoreURN{}, errors.Wrapf(err, "putting %s", id)
	}
	return dataio.FileStoreURN{FileID: id}, nil
}

// File implements dataio.FileStore.
func (s *Store) File(ctx context.Context, fileID string) (io.ReadCloser, error) {
	result, err := s.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(fileID),
	})
	if notFound(err) {
		return nil, errors.Wrapf(dataio.ErrNotFound, "data file %s", fileID)
	} else if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", fileID)
	}
	return result.Body, nil
}

// ByteSize implements dataio.FileStore.
func (s *Store) ByteSize(ctx context.Context, fileID string) (int64, error) {
	result, err := s.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(fileID),
	})
	if notFound(err) {
		return 0, errors.Wrapf(dataio.ErrNotFound, "data file %s", fileID)
	} else if err != nil {
		return 0, errors.Wrapf(err, "heading %v", fileID)
	}
	return aws.Int64Value(result.ContentLength), nil
}
