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

// Package boltdb provides a jobstore.Store implementation using boltdb. Jobs,
// chunks and items are stored as JSON, and listings are evaluated in memory
// with criteria.Match.
package boltdb

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/pkg/errors"
)

var (
	jobBucket   = []byte("job")
	chunkBucket = []byte("chunk")
	itemBucket  = []byte("item")
)

// Store is a jobstore.Store which keeps everything in a single bolt file.
type Store struct {
	Db *bolt.DB
}

// NewStore opens or creates the bolt file at filename.
func NewStore(filename string) (s *Store, err error) {
	s = &Store{}
	s.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	s.Db.MaxBatchDelay = 400 * time.Microsecond
	err = s.Db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{jobBucket, chunkBucket, itemBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating %s bucket", name)
			}
		}
		return nil
	})
	if err != nil {
		s.Db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return s, nil
}

// Close syncs and closes the underlying boltdb.
func (s *Store) Close() error {
	err := s.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return s.Db.Close()
}

// key encodes ids big endian so that keys sort numerically.
func key(ids ...int64) []byte {
	k := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint64(k[i*8:], uint64(id))
	}
	return k
}

func put(b *bolt.Bucket, k []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshalling")
	}
	return b.Put(k, data)
}

// CreateJob implements jobstore.Store. IDs are allocated from the bucket
// sequence, starting at 1.
func (s *Store) CreateJob(ctx context.Context, job *dataio.Job) error {
	return s.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobBucket)
		id, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "allocating job id")
		}
		job.ID = int64(id)
		return errors.Wrapf(put(b, key(job.ID), job), "storing job %d", job.ID)
	})
}

// UpdateJob implements jobstore.Store.
func (s *Store) UpdateJob(ctx context.Context, job *dataio.Job) error {
	return s.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(jobBucket)
		if b.Get(key(job.ID)) == nil {
			return errors.Wrapf(dataio.ErrNotFound, "job %d", job.ID)
		}
		return errors.Wrapf(put(b, key(job.ID), job), "storing job %d", job.ID)
	})
}

// Job implements jobstore.Store.
func (s *Store) Job(ctx context.Context, id int64) (*dataio.Job, error) {
	job := &dataio.Job{}
	err := s.Db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(jobBucket).Get(key(id))
		if data == nil {
			return errors.Wrapf(dataio.ErrNotFound, "job %d", id)
		}
		return errors.Wrapf(json.Unmarshal(data, job), "unmarshalling job %d", id)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// AddChunk implements jobstore.Store.
func (s *Store) AddChunk(ctx context.Context, chunk *dataio.Chunk, items []*dataio.Item) error {
	stored := *chunk
	stored.Items = nil
	return s.Db.Batch(func(tx *bolt.Tx) error {
		if err := put(tx.Bucket(chunkBucket), key(chunk.JobID, chunk.ID), &stored); err != nil {
			return errors.Wrapf(err, "storing chunk %d/%d", chunk.JobID, chunk.ID)
		}
		ib := tx.Bucket(itemBucket)
		for _, item := range items {
			if err := put(ib, key(item.JobID, item.ChunkID, int64(item.ID)), item); err != nil {
				return errors.Wrapf(err, "storing item %d/%d/%d", item.JobID, item.ChunkID, item.ID)
			}
		}
		return nil
	})
}

// recordIDs returns the record ids of the items of job id.
func recordIDs(tx *bolt.Tx, id int64) ([]string, error) {
	var ids []string
	prefix := key(id)
	c := tx.Bucket(itemBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		item := &dataio.Item{}
		if err := json.Unmarshal(v, item); err != nil {
			return nil, errors.Wrap(err, "unmarshalling item")
		}
		if item.RecordInfo != nil && item.RecordInfo.ID != "" {
			ids = append(ids, item.RecordInfo.ID)
		}
	}
	return ids, nil
}

func usesField[F criteria.Field](c *criteria.ListCriteria[F], f F) bool {
	for _, g := range c.Filtering() {
		for _, m := range g.Members {
			if m.Filter.Field == f {
				return true
			}
		}
	}
	return false
}

// ListJobs implements jobstore.Store.
func (s *Store) ListJobs(ctx context.Context, c *criteria.JobCriteria) ([]*dataio.Job, error) {
	var vals []jobstore.JobValues
	withRecords := usesField(c, criteria.JobRecordID)
	err := s.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(jobBucket).ForEach(func(k, v []byte) error {
			job := &dataio.Job{}
			if err := json.Unmarshal(v, job); err != nil {
				return errors.Wrap(err, "unmarshalling job")
			}
			jv := jobstore.JobValues{Job: job}
			if withRecords {
				var err error
				if jv.RecordIDs, err = recordIDs(tx, job.ID); err != nil {
					return err
				}
			}
			ok, err := criteria.Match[criteria.JobField](c, jv)
			if err != nil {
				return err
			}
			if ok {
				vals = append(vals, jv)
			}
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing jobs")
	}
	vals = criteria.Page[criteria.JobField](c, vals)
	jobs := make([]*dataio.Job, len(vals))
	for i, v := range vals {
		jobs[i] = v.Job
	}
	return jobs, nil
}

// CountJobs implements jobstore.Store. Limit and offset of c are ignored.
func (s *Store) CountJobs(ctx context.Context, c *criteria.JobCriteria) (int, error) {
	all := *c
	jobs, err := s.ListJobs(ctx, all.WithLimit(0).WithOffset(0))
	return len(jobs), err
}

// ListChunks implements jobstore.Store.
func (s *Store) ListChunks(ctx context.Context, c *criteria.ChunkCriteria) ([]*dataio.Chunk, error) {
	var vals []jobstore.ChunkValues
	err := s.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(chunkBucket).ForEach(func(k, v []byte) error {
			chunk := &dataio.Chunk{}
			if err := json.Unmarshal(v, chunk); err != nil {
				return errors.Wrap(err, "unmarshalling chunk")
			}
			cv := jobstore.ChunkValues{Chunk: chunk}
			ok, err := criteria.Match[criteria.ChunkField](c, cv)
			if ok {
				vals = append(vals, cv)
			}
			return err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing chunks")
	}
	vals = criteria.Page[criteria.ChunkField](c, vals)
	chunks := make([]*dataio.Chunk, len(vals))
	for i, v := range vals {
		chunks[i] = v.Chunk
	}
	return chunks, nil
}

// ListItems implements jobstore.Store.
func (s *Store) ListItems(ctx context.Context, c *criteria.ItemCriteria) ([]*dataio.Item, error) {
	var vals []jobstore.ItemValues
	err := s.Db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(itemBucket).ForEach(func(k, v []byte) error {
			item := &dataio.Item{}
			if err := json.Unmarshal(v, item); err != nil {
				return errors.Wrap(err, "unmarshalling item")
			}
			iv := jobstore.ItemValues{Item: item}
			ok, err := criteria.Match[criteria.ItemField](c, iv)
			if ok {
				vals = append(vals, iv)
			}
			return err
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing items")
	}
	vals = criteria.Page[criteria.ItemField](c, vals)
	items := make([]*dataio.Item, len(vals))
	for i, v := range vals {
		items[i] = v.Item
	}
	return items, nil
}
