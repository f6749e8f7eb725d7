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

// Package ingest wires the job-store to its backing stores and creates jobs
// from job specification files.
package ingest

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/aws/s3"
	"github.com/dbcdk/dataio/boltdb"
	"github.com/dbcdk/dataio/file"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/dbcdk/dataio/kafka"
	"github.com/dbcdk/dataio/leveldb"
	"github.com/dbcdk/dataio/postgres"
	"github.com/dbcdk/dataio/termstat"
	"github.com/pilosa/pilosa/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Main holds the configuration for creating jobs.
type Main struct {
	Specs         string   `help:"Job specification TOML file, or a directory of them."`
	BoltPath      string   `help:"Bolt file holding jobs, chunks and items."`
	PostgresURL   string   `help:"PostgreSQL URL. If set, jobs are stored in PostgreSQL instead of the bolt file."`
	FlowStorePath string   `help:"Directory of the leveldb flow-store."`
	FileStorePath string   `help:"Directory of the file-store."`
	S3Bucket      string   `help:"S3 bucket holding data files. If set, it is used instead of the file-store directory."`
	S3Region      string   `help:"AWS region of the S3 bucket."`
	S3Prefix      string   `help:"Key prefix of data files in the S3 bucket."`
	KafkaHosts    []string `help:"Comma separated list of Kafka hosts and ports. Chunks are published only if set."`
	KafkaTopic    string   `help:"Kafka topic to publish chunks to."`
	ChunkSize     int      `help:"Maximum number of items in a chunk."`
	Concurrency   int      `help:"Number of job specification files to process concurrently."`
	Stats         bool     `help:"Print partitioning stats to stderr."`
	LogPath       string   `help:"Log file to write to. Empty means stderr."`
	Verbose       bool     `help:"Enable verbose logging."`

	stdout io.Writer
	outMu  sync.Mutex

	store     jobstore.Store
	flowStore *leveldb.FlowStore
	fileStore FileStore
	publisher *kafka.Publisher
	stats     *termstat.Collector
	log       logger.Logger
}

// FileStore is a dataio.FileStore which data files can be added to.
type FileStore interface {
	dataio.FileStore
	Add(ctx context.Context, r io.Reader) (dataio.FileStoreURN, error)
}

// NewMain returns a Main with default values.
func NewMain() *Main {
	return &Main{
		Specs:         "jobs",
		BoltPath:      "dataio.db",
		FlowStorePath: "flowstore",
		FileStorePath: "filestore",
		KafkaTopic:    "dataio-chunks",
		ChunkSize:     jobstore.DefaultMaxChunkSize,
		Concurrency:   1,
		stdout:        os.Stdout,
	}
}

// SetOutput sets where created jobs are written as JSON.
func (m *Main) SetOutput(w io.Writer) { m.stdout = w }

// Log returns the logger set up by Setup.
func (m *Main) Log() logger.Logger { return m.log }

// Store returns the job store opened by Setup.
func (m *Main) Store() jobstore.Store { return m.store }

// FlowStore returns the flow-store opened by Setup.
func (m *Main) FlowStore() *leveldb.FlowStore { return m.flowStore }

// FileStore returns the file-store opened by Setup.
func (m *Main) FileStore() FileStore { return m.fileStore }

// Run creates a job for every job specification file.
func (m *Main) Run() (err error) {
	ctx := context.Background()
	if err := m.Setup(ctx); err != nil {
		return errors.Wrap(err, "setting up")
	}
	defer func() {
		if cerr := m.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	src, err := file.NewRawSource(m.Specs)
	if err != nil {
		return errors.Wrap(err, "getting job specifications")
	}
	js := m.JobStore()
	eg := errgroup.Group{}
	for c := 0; c < m.Concurrency; c++ {
		eg.Go(func() error {
			return m.runJobs(ctx, js, src)
		})
	}
	return eg.Wait()
}

func (m *Main) runJobs(ctx context.Context, js *jobstore.JobStore, src *file.RawSource) error {
	for {
		r, err := src.NextReader()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		spec, err := DecodeSpec(r)
		r.Close()
		if err != nil {
			return errors.Wrapf(err, "decoding %s", r.Name())
		}
		start := time.Now()
		job, err := js.AddJob(ctx, spec)
		if err != nil {
			return errors.Wrapf(err, "adding job from %s", r.Name())
		}
		m.log.Printf("job %d from %s: %d chunks, %d items, fatal error: %v, took %v", job.ID, r.Name(),
			job.NumberOfChunks, job.NumberOfItems, job.FatalError, time.Since(start))
		m.outMu.Lock()
		err = json.NewEncoder(m.stdout).Encode(job)
		m.outMu.Unlock()
		if err != nil {
			return errors.Wrap(err, "writing job")
		}
	}
}

// DecodeSpec reads a TOML job specification.
func DecodeSpec(r io.Reader) (dataio.JobSpecification, error) {
	spec := dataio.JobSpecification{}
	if _, err := toml.DecodeReader(r, &spec); err != nil {
		return spec, errors.Wrap(err, "decoding toml")
	}
	return spec, nil
}

// JobStore returns a JobStore using the stores opened by Setup.
func (m *Main) JobStore() *jobstore.JobStore {
	opts := []jobstore.Option{jobstore.OptMaxChunkSize(m.ChunkSize), jobstore.OptLogger(m.log)}
	if m.publisher != nil {
		opts = append(opts, jobstore.OptPublisher(m.publisher))
	}
	if m.stats != nil {
		opts = append(opts, jobstore.OptStatter(m.stats))
	}
	return jobstore.New(m.store, m.flowStore, m.fileStore, opts...)
}

// Setup sets up logging and opens the configured stores.
func (m *Main) Setup(ctx context.Context) (err error) {
	logOut := os.Stderr
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return errors.Wrap(err, "opening log file")
		}
		logOut = f
	}
	if m.Verbose {
		m.log = logger.NewVerboseLogger(logOut)
	} else {
		m.log = logger.NewStandardLogger(logOut)
	}
	if m.stdout == nil {
		m.stdout = os.Stdout
	}
	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	defer func() {
		if err != nil {
			m.Close()
		}
	}()
	if m.store, err = OpenStore(ctx, m.BoltPath, m.PostgresURL); err != nil {
		return err
	}
	if m.flowStore, err = leveldb.NewFlowStore(m.FlowStorePath); err != nil {
		return errors.Wrap(err, "opening flow-store")
	}
	if m.fileStore, err = OpenFileStore(m.FileStorePath, m.S3Bucket, m.S3Region, m.S3Prefix); err != nil {
		return err
	}
	if len(m.KafkaHosts) > 0 {
		m.publisher = kafka.NewPublisher()
		m.publisher.Hosts = m.KafkaHosts
		m.publisher.Topic = m.KafkaTopic
		if err := m.publisher.Open(); err != nil {
			m.publisher = nil
			return errors.Wrap(err, "opening kafka publisher")
		}
	}
	if m.Stats {
		m.stats = termstat.NewCollector(os.Stderr)
	}
	return nil
}

// OpenStore opens the PostgreSQL job store at postgresURL if it is set, and
// the bolt file at boltPath otherwise.
func OpenStore(ctx context.Context, boltPath, postgresURL string) (jobstore.Store, error) {
	if postgresURL != "" {
		store, err := postgres.NewStore(ctx, postgresURL)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres job store")
		}
		return store, nil
	}
	store, err := boltdb.NewStore(boltPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt job store")
	}
	return store, nil
}

// OpenFileStore opens the file-store in s3Bucket if it is set, and the
// file-store directory at path otherwise.
func OpenFileStore(path, s3Bucket, s3Region, s3Prefix string) (FileStore, error) {
	if s3Bucket != "" {
		fs, err := s3.NewStore(s3Bucket, s3.OptStoreRegion(s3Region), s3.OptStorePrefix(s3Prefix))
		if err != nil {
			return nil, errors.Wrap(err, "opening s3 file-store")
		}
		return fs, nil
	}
	fs, err := file.NewStore(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file-store")
	}
	return fs, nil
}

// Close closes everything opened by Setup.
func (m *Main) Close() error {
	var errs dataio.Errors
	if m.stats != nil {
		errs = errs.Append(m.stats.Close())
		m.stats = nil
	}
	if m.publisher != nil {
		errs = errs.Append(m.publisher.Close())
		m.publisher = nil
	}
	if m.flowStore != nil {
		errs = errs.Append(m.flowStore.Close())
		m.flowStore = nil
	}
	if m.store != nil {
		errs = errs.Append(m.store.Close())
		m.store = nil
	}
	return errs.Err()
}
