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

// Package leveldb implements dataio.FlowStore on top of a local leveldb
// directory. Entities are stored as JSON under a per-kind key prefix, with
// secondary keys for looking up submitters by number and flow binders by
// their search tuple.
package leveldb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dbcdk/dataio"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var _ dataio.FlowStore = &FlowStore{}

const (
	kindSubmitter = "submitter"
	kindBinder    = "flowbinder"
	kindFlow      = "flow"
	kindSink      = "sink"

	seqKey = "seq"
)

// FlowStore is a dataio.FlowStore which keeps its entities in leveldb.
type FlowStore struct {
	lock  valueLocker
	db    *leveldb.DB
	curID *uint64
}

// NewFlowStore opens or creates a FlowStore in dirname.
func NewFlowStore(dirname string) (*FlowStore, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	fs := &FlowStore{lock: newBucketVLock()}
	fs.db, err = leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	var initialID uint64
	data, err := fs.db.Get([]byte(seqKey), nil)
	if err == nil {
		initialID = binary.BigEndian.Uint64(data)
	} else if err != leveldb.ErrNotFound {
		fs.db.Close()
		return nil, errors.Wrap(err, "reading id sequence")
	}
	fs.curID = &initialID
	return fs, nil
}

// Close closes the underlying leveldb.
func (fs *FlowStore) Close() error {
	return errors.Wrap(fs.db.Close(), "closing leveldb")
}

func entityKey(kind string, id int64) []byte {
	key := make([]byte, len(kind)+9)
	copy(key, kind)
	key[len(kind)] = '/'
	binary.BigEndian.PutUint64(key[len(kind)+1:], uint64(id))
	return key
}

func numberKey(number int64) []byte {
	return []byte(fmt.Sprintf("submitter-number/%d", number))
}

func binderKey(packaging, format, charset string, submitterID int64, destination string) []byte {
	return []byte(fmt.Sprintf("flowbinder-key/%s\x00%s\x00%s\x00%s\x00%d", packaging, format, charset, destination, submitterID))
}

func (fs *FlowStore) get(kind string, id int64, v interface{}) error {
	data, err := fs.db.Get(entityKey(kind, id), nil)
	if err == leveldb.ErrNotFound {
		return errors.Wrapf(dataio.ErrNotFound, "%s %d", kind, id)
	} else if err != nil {
		return errors.Wrapf(err, "reading %s %d", kind, id)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "unmarshalling %s %d", kind, id)
}

func (fs *FlowStore) getID(key []byte) (int64, error) {
	data, err := fs.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return 0, errors.Wrapf(dataio.ErrNotFound, "%s", key)
	} else if err != nil {
		return 0, errors.Wrapf(err, "reading %s", key)
	}
	return int64(binary.BigEndian.Uint64(data)), nil
}

// SubmitterByNumber implements dataio.FlowStore.
func (fs *FlowStore) SubmitterByNumber(ctx context.Context, number int64) (*dataio.Submitter, error) {
	id, err := fs.getID(numberKey(number))
	if err != nil {
		return nil, errors.Wrap(err, "looking up submitter number")
	}
	return fs.Submitter(ctx, id)
}

// Submitter implements dataio.FlowStore.
func (fs *FlowStore) Submitter(ctx context.Context, id int64) (*dataio.Submitter, error) {
	s := &dataio.Submitter{}
	if err := fs.get(kindSubmitter, id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FlowBinder implements dataio.FlowStore. The submitter number is resolved
// to a submitter id first, so a binder is only found for submitters it
// lists.
func (fs *FlowStore) FlowBinder(ctx context.Context, packaging, format, charset string, submitterNumber int64, destination string) (*dataio.FlowBinder, error) {
	sid, err := fs.getID(numberKey(submitterNumber))
	if err != nil {
		return nil, errors.Wrap(err, "looking up submitter number")
	}
	id, err := fs.getID(binderKey(packaging, format, charset, sid, destination))
	if err != nil {
		return nil, errors.Wrap(err, "looking up flow binder")
	}
	b := &dataio.FlowBinder{}
	if err := fs.get(kindBinder, id, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Flow implements dataio.FlowStore.
func (fs *FlowStore) Flow(ctx context.Context, id int64) (*dataio.Flow, error) {
	f := &dataio.Flow{}
	if err := fs.get(kindFlow, id, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Sink implements dataio.FlowStore.
func (fs *FlowStore) Sink(ctx context.Context, id int64) (*dataio.Sink, error) {
	s := &dataio.Sink{}
	if err := fs.get(kindSink, id, s); err != nil {
		return nil, err
	}
	return s, nil
}

// nextID allocates a new entity id. The sequence is persisted with the
// batch that stores the entity.
func (fs *FlowStore) nextID(batch *leveldb.Batch) int64 {
	id := atomic.AddUint64(fs.curID, 1)
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, id)
	batch.Put([]byte(seqKey), seq)
	return int64(id)
}

// advance moves the sequence past an explicitly given id.
func (fs *FlowStore) advance(batch *leveldb.Batch, id int64) {
	for cur := atomic.LoadUint64(fs.curID); uint64(id) > cur; cur = atomic.LoadUint64(fs.curID) {
		if atomic.CompareAndSwapUint64(fs.curID, cur, uint64(id)) {
			seq := make([]byte, 8)
			binary.BigEndian.PutUint64(seq, uint64(id))
			batch.Put([]byte(seqKey), seq)
			return
		}
	}
}

// put stores v under (kind, *id) with extra index keys pointing at it. A zero
// id allocates a new one. The stored version is bumped on every put.
func (fs *FlowStore) put(kind string, id, version *int64, v interface{}, index ...[]byte) error {
	batch := new(leveldb.Batch)
	if *id == 0 {
		*id = fs.nextID(batch)
	} else {
		fs.advance(batch, *id)
	}
	key := entityKey(kind, *id)
	fs.lock.Lock(key)
	defer fs.lock.Unlock(key)

	var stored struct {
		Version int64 `json:"version"`
	}
	data, err := fs.db.Get(key, nil)
	if err != nil && err != leveldb.ErrNotFound {
		return errors.Wrapf(err, "reading %s %d", kind, *id)
	} else if err == nil {
		if err := json.Unmarshal(data, &stored); err != nil {
			return errors.Wrapf(err, "unmarshalling %s %d", kind, *id)
		}
	}
	*version = stored.Version + 1
	if data, err = json.Marshal(v); err != nil {
		return errors.Wrapf(err, "marshalling %s %d", kind, *id)
	}
	batch.Put(key, data)
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, uint64(*id))
	for _, k := range index {
		batch.Put(k, idBytes)
	}
	return errors.Wrapf(fs.db.Write(batch, &opt.WriteOptions{}), "writing %s %d", kind, *id)
}

// PutSubmitter creates or replaces s, assigning its id and version.
func (fs *FlowStore) PutSubmitter(ctx context.Context, s *dataio.Submitter) error {
	return fs.put(kindSubmitter, &s.ID, &s.Version, s, numberKey(s.Content.Number))
}

// PutFlowBinder creates or replaces b, assigning its id and version. It is
// indexed for every submitter id it lists.
func (fs *FlowStore) PutFlowBinder(ctx context.Context, b *dataio.FlowBinder) error {
	c := b.Content
	index := make([][]byte, 0, len(c.SubmitterIDs))
	for _, sid := range c.SubmitterIDs {
		index = append(index, binderKey(c.Packaging, c.Format, c.Charset, sid, c.Destination))
	}
	return fs.put(kindBinder, &b.ID, &b.Version, b, index...)
}

// PutFlow creates or replaces f, assigning its id and version.
func (fs *FlowStore) PutFlow(ctx context.Context, f *dataio.Flow) error {
	return fs.put(kindFlow, &f.ID, &f.Version, f)
}

// PutSink creates or replaces s, assigning its id and version.
func (fs *FlowStore) PutSink(ctx context.Context, s *dataio.Sink) error {
	return fs.put(kindSink, &s.ID, &s.Version, s)
}

// Sinks returns all stored sinks in id order.
func (fs *FlowStore) Sinks(ctx context.Context) ([]*dataio.Sink, error) {
	var sinks []*dataio.Sink
	iter := fs.db.NewIterator(util.BytesPrefix([]byte(kindSink+"/")), nil)
	defer iter.Release()
	for iter.Next() {
		s := &dataio.Sink{}
		if err := json.Unmarshal(iter.Value(), s); err != nil {
			return nil, errors.Wrap(err, "unmarshalling sink")
		}
		sinks = append(sinks, s)
	}
	return sinks, errors.Wrap(iter.Error(), "iterating sinks")
}

type valueLocker interface {
	Lock(val []byte)
	Unlock(val []byte)
}

type bucketVLock struct {
	ms []sync.Mutex
}

func newBucketVLock() bucketVLock {
	return bucketVLock{
		ms: make([]sync.Mutex, 1000),
	}
}

func (b bucketVLock) Lock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Lock()
}

func (b bucketVLock) Unlock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Unlock()
}
