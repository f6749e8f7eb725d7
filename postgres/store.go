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

// Package postgres implements jobstore.Store on PostgreSQL. Listings are
// translated to SQL by criteria/pgquery.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/dbcdk/dataio/criteria/pgquery"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ jobstore.Store = &Store{}

const schema = `
CREATE TABLE IF NOT EXISTS job (
	id                     BIGSERIAL PRIMARY KEY,
	specification          JSONB NOT NULL,
	flowStoreReferences    JSONB NOT NULL,
	priority               INTEGER NOT NULL,
	recordSplitter         TEXT NOT NULL,
	state                  JSONB NOT NULL,
	diagnostics            JSONB NOT NULL,
	fatalError             BOOLEAN NOT NULL,
	previewOnly            BOOLEAN NOT NULL,
	numberOfChunks         INTEGER NOT NULL,
	numberOfItems          INTEGER NOT NULL,
	sinkId                 BIGINT NOT NULL,
	timeOfCreation         TIMESTAMPTZ NOT NULL,
	timeOfLastModification TIMESTAMPTZ NOT NULL,
	timeOfCompletion       TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS chunk (
	jobId            BIGINT NOT NULL REFERENCES job (id),
	id               BIGINT NOT NULL,
	dataFileId       TEXT NOT NULL,
	keys             JSONB NOT NULL,
	state            JSONB NOT NULL,
	timeOfCreation   TIMESTAMPTZ NOT NULL,
	timeOfCompletion TIMESTAMPTZ,
	PRIMARY KEY (jobId, id)
);
CREATE TABLE IF NOT EXISTS item (
	jobId               BIGINT NOT NULL,
	chunkId             BIGINT NOT NULL,
	id                  INTEGER NOT NULL,
	state               JSONB NOT NULL,
	recordInfo          JSONB,
	partitioningOutcome JSONB NOT NULL,
	timeOfCreation      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (jobId, chunkId, id),
	FOREIGN KEY (jobId, chunkId) REFERENCES chunk (jobId, id)
);
CREATE INDEX IF NOT EXISTS item_recordinfo_id ON item ((recordInfo->>'id'));
`

const (
	jobColumns = "id, specification, flowStoreReferences, priority, recordSplitter, state, diagnostics," +
		" fatalError, previewOnly, numberOfChunks, numberOfItems, timeOfCreation, timeOfLastModification," +
		" timeOfCompletion"
	chunkColumns = "jobId, id, dataFileId, keys, state, timeOfCreation, timeOfCompletion"
	itemColumns  = "jobId, chunkId, id, state, recordInfo, partitioningOutcome, timeOfCreation"
)

// Store is a jobstore.Store backed by PostgreSQL.
type Store struct {
	db *sql.DB

	jobs   *pgquery.Builder[criteria.JobField]
	chunks *pgquery.Builder[criteria.ChunkField]
	items  *pgquery.Builder[criteria.ItemField]
}

// NewStore connects to the database at dataSourceName and creates the
// tables if they do not exist.
func NewStore(ctx context.Context, dataSourceName string) (*Store, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating tables")
	}
	dollar := pgquery.OptPlaceholder(pgquery.Dollar)
	return &Store{
		db:     db,
		jobs:   pgquery.NewBuilder(pgquery.JobMappings, dollar),
		chunks: pgquery.NewBuilder(pgquery.ChunkMappings, dollar),
		items:  pgquery.NewBuilder(pgquery.ItemMappings, dollar),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing database")
}

// jsonb returns v marshalled for a JSONB parameter.
func jsonb(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	return string(data), errors.Wrap(err, "marshalling")
}

func jsonbs(vs ...interface{}) ([]interface{}, error) {
	args := make([]interface{}, len(vs))
	for i, v := range vs {
		var err error
		if args[i], err = jsonb(v); err != nil {
			return nil, err
		}
	}
	return args, nil
}

func jobArgs(job *dataio.Job) ([]interface{}, error) {
	diags := job.Diagnostics
	if diags == nil {
		diags = []dataio.Diagnostic{}
	}
	args, err := jsonbs(job.Specification, job.FlowStoreReferences, job.State, diags)
	if err != nil {
		return nil, errors.Wrapf(err, "job %d", job.ID)
	}
	return append(args, int(job.Priority), string(job.RecordSplitter), job.FatalError, job.PreviewOnly,
		job.NumberOfChunks, job.NumberOfItems, job.SinkID(), job.TimeOfCreation, job.TimeOfLastModification,
		pq.NullTime{Time: timeOrZero(job.TimeOfCompletion), Valid: job.TimeOfCompletion != nil}), nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func timePtr(t pq.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// CreateJob implements jobstore.Store.
func (s *Store) CreateJob(ctx context.Context, job *dataio.Job) error {
	args, err := jobArgs(job)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `INSERT INTO job (specification, flowStoreReferences, state, diagnostics,
		priority, recordSplitter, fatalError, previewOnly, numberOfChunks, numberOfItems, sinkId, timeOfCreation,
		timeOfLastModification, timeOfCompletion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`, args...).Scan(&job.ID)
	return errors.Wrap(err, "inserting job")
}

// UpdateJob implements jobstore.Store.
func (s *Store) UpdateJob(ctx context.Context, job *dataio.Job) error {
	args, err := jobArgs(job)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE job SET specification=$1, flowStoreReferences=$2, state=$3,
		diagnostics=$4, priority=$5, recordSplitter=$6, fatalError=$7, previewOnly=$8, numberOfChunks=$9,
		numberOfItems=$10, sinkId=$11, timeOfCreation=$12, timeOfLastModification=$13, timeOfCompletion=$14
		WHERE id=$15`, append(args, job.ID)...)
	if err != nil {
		return errors.Wrapf(err, "updating job %d", job.ID)
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "getting rows affected")
	} else if n == 0 {
		return errors.Wrapf(dataio.ErrNotFound, "job %d", job.ID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*dataio.Job, error) {
	job := &dataio.Job{}
	var spec, refs, state, diags []byte
	var priority int
	var splitter string
	var completed pq.NullTime
	err := row.Scan(&job.ID, &spec, &refs, &priority, &splitter, &state, &diags, &job.FatalError,
		&job.PreviewOnly, &job.NumberOfChunks, &job.NumberOfItems, &job.TimeOfCreation,
		&job.TimeOfLastModification, &completed)
	if err != nil {
		return nil, err
	}
	job.Priority = dataio.Priority(priority)
	job.RecordSplitter = dataio.RecordSplitter(splitter)
	job.TimeOfCompletion = timePtr(completed)
	if err := unmarshal(spec, &job.Specification, refs, &job.FlowStoreReferences, state, &job.State, diags, &job.Diagnostics); err != nil {
		return nil, errors.Wrapf(err, "job %d", job.ID)
	}
	return job, nil
}

// unmarshal takes pairs of JSON documents and destinations.
func unmarshal(pairs ...interface{}) error {
	for i := 0; i < len(pairs); i += 2 {
		if err := json.Unmarshal(pairs[i].([]byte), pairs[i+1]); err != nil {
			return errors.Wrap(err, "unmarshalling column")
		}
	}
	return nil
}

// Job implements jobstore.Store.
func (s *Store) Job(ctx context.Context, id int64) (*dataio.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM job WHERE id=$1", id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(dataio.ErrNotFound, "job %d", id)
	}
	return job, errors.Wrapf(err, "getting job %d", id)
}

// AddChunk implements jobstore.Store. The chunk and its items are inserted
// in one transaction.
func (s *Store) AddChunk(ctx context.Context, chunk *dataio.Chunk, items []*dataio.Item) (err error) {
	keys := chunk.Keys
	if keys == nil {
		keys = []string{}
	}
	chunkArgs, err := jsonbs(keys, chunk.State)
	if err != nil {
		return errors.Wrapf(err, "chunk %d/%d", chunk.JobID, chunk.ID)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	_, err = tx.ExecContext(ctx, "INSERT INTO chunk ("+chunkColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		chunk.JobID, chunk.ID, chunk.DataFileID, chunkArgs[0], chunkArgs[1], chunk.TimeOfCreate,
		pq.NullTime{Time: timeOrZero(chunk.TimeOfDone), Valid: chunk.TimeOfDone != nil})
	if err != nil {
		return errors.Wrapf(err, "inserting chunk %d/%d", chunk.JobID, chunk.ID)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO item ("+itemColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return errors.Wrap(err, "preparing item insert")
	}
	defer stmt.Close()
	for _, item := range items {
		var args []interface{}
		if args, err = jsonbs(item.State, item.RecordInfo, item.Partitioning); err != nil {
			return errors.Wrapf(err, "item %d/%d/%d", item.JobID, item.ChunkID, item.ID)
		}
		_, err = stmt.ExecContext(ctx, item.JobID, item.ChunkID, item.ID, args[0], args[1], args[2], item.TimeOfCreation)
		if err != nil {
			return errors.Wrapf(err, "inserting item %d/%d/%d", item.JobID, item.ChunkID, item.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "committing chunk")
}

// ListJobs implements jobstore.Store.
func (s *Store) ListJobs(ctx context.Context, c *criteria.JobCriteria) ([]*dataio.Job, error) {
	q, args, err := s.jobs.Query("SELECT "+jobColumns+" FROM job", c)
	if err != nil {
		return nil, errors.Wrap(err, "building job query")
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying '%s'", q)
	}
	defer rows.Close()
	var jobs []*dataio.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning job")
		}
		jobs = append(jobs, job)
	}
	return jobs, errors.Wrap(rows.Err(), "iterating jobs")
}

// CountJobs implements jobstore.Store.
func (s *Store) CountJobs(ctx context.Context, c *criteria.JobCriteria) (int, error) {
	q, args, err := s.jobs.Count("SELECT COUNT(*) FROM job", c)
	if err != nil {
		return 0, errors.Wrap(err, "building count query")
	}
	var n int
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, errors.Wrapf(err, "querying '%s'", q)
}

// ListChunks implements jobstore.Store.
func (s *Store) ListChunks(ctx context.Context, c *criteria.ChunkCriteria) ([]*dataio.Chunk, error) {
	q, args, err := s.chunks.Query("SELECT "+chunkColumns+" FROM chunk", c)
	if err != nil {
		return nil, errors.Wrap(err, "building chunk query")
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying '%s'", q)
	}
	defer rows.Close()
	var chunks []*dataio.Chunk
	for rows.Next() {
		chunk := &dataio.Chunk{}
		var keys, state []byte
		var done pq.NullTime
		err := rows.Scan(&chunk.JobID, &chunk.ID, &chunk.DataFileID, &keys, &state, &chunk.TimeOfCreate, &done)
		if err != nil {
			return nil, errors.Wrap(err, "scanning chunk")
		}
		chunk.TimeOfDone = timePtr(done)
		if err := unmarshal(keys, &chunk.Keys, state, &chunk.State); err != nil {
			return nil, errors.Wrapf(err, "chunk %d/%d", chunk.JobID, chunk.ID)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, errors.Wrap(rows.Err(), "iterating chunks")
}

// ListItems implements jobstore.Store.
func (s *Store) ListItems(ctx context.Context, c *criteria.ItemCriteria) ([]*dataio.Item, error) {
	q, args, err := s.items.Query("SELECT "+itemColumns+" FROM item", c)
	if err != nil {
		return nil, errors.Wrap(err, "building item query")
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying '%s'", q)
	}
	defer rows.Close()
	var items []*dataio.Item
	for rows.Next() {
		item := &dataio.Item{}
		var state, info, outcome []byte
		err := rows.Scan(&item.JobID, &item.ChunkID, &item.ID, &state, &info, &outcome, &item.TimeOfCreation)
		if err != nil {
			return nil, errors.Wrap(err, "scanning item")
		}
		if err := unmarshal(state, &item.State, outcome, &item.Partitioning); err != nil {
			return nil, errors.Wrapf(err, "item %d/%d/%d", item.JobID, item.ChunkID, item.ID)
		}
		if info != nil {
			if err := json.Unmarshal(info, &item.RecordInfo); err != nil {
				return nil, errors.Wrapf(err, "item %d/%d/%d record info", item.JobID, item.ChunkID, item.ID)
			}
		}
		items = append(items, item)
	}
	return items, errors.Wrap(rows.Err(), "iterating items")
}
