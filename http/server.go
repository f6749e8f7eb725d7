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

// Package http serves the job-store over HTTP: jobs are created by posting
// job specifications and listed with the same filter syntax as the command
// line.
package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// Server answers job-store requests.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	jobs  *jobstore.JobStore
	store jobstore.Store
	log   dataio.Logger
}

// ServerOption is a functional option type for Server.
type ServerOption func(s *Server)

// WithAddr causes the Server to bind to the given address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithListener causes the Server to use the given listener. It will infer the
// address from the listener.
func WithListener(l net.Listener) ServerOption {
	return func(s *Server) {
		s.listener = l
		s.addr = l.Addr().String()
	}
}

// WithLogger sets the logger for request failures.
func WithLogger(l dataio.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer returns a Server creating jobs with jobs and listing them from
// store. It does not listen until Serve is called.
func NewServer(jobs *jobstore.JobStore, store jobstore.Store, opts ...ServerOption) *Server {
	s := &Server{
		addr:  ":8080",
		jobs:  jobs,
		store: store,
		log:   dataio.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  time.Minute,
		WriteTimeout: 10 * time.Minute,
	}
	return s
}

// Handler returns the routes of the Server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/jobs", s.handlePostJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/count", s.handleCountJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/chunks", s.handleListChunks).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	return r
}

// Serve listens and serves until Close is called.
func (s *Server) Serve() error {
	if s.listener == nil {
		var err error
		s.listener, err = net.Listen("tcp", s.addr)
		if err != nil {
			return errors.Wrap(err, "listening")
		}
	}
	err := s.server.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "serving")
}

// Addr gets the address that the Server is listening on.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close stops the Server.
func (s *Server) Close() error {
	return errors.Wrap(s.server.Close(), "closing server")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("writing response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Printf("request failed with %d: %v", status, err)
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handlePostJob creates a job from the JSON job specification in the body.
// Positions given as include parameters restrict partitioning to the
// records at those positions.
func (s *Server) handlePostJob(w http.ResponseWriter, r *http.Request) {
	spec := dataio.JobSpecification{}
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.Wrap(err, "decoding job specification"))
		return
	}
	var include []uint64
	for _, p := range r.URL.Query()["include"] {
		pos, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, errors.Wrapf(err, "parsing include position '%s'", p))
			return
		}
		include = append(include, pos)
	}
	job, err := s.jobs.AddJob(r.Context(), spec, include...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := s.store.Job(r.Context(), id)
	if errors.Cause(err) == dataio.ErrNotFound {
		s.writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

// parseCriteria reads repeated filter and order parameters plus limit and
// offset from the query string. See criteria.Parse for the syntax.
func parseCriteria[F criteria.Field](r *http.Request, fields []F) (*criteria.ListCriteria[F], error) {
	q := r.URL.Query()
	var limit, offset int
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", name)
			}
			*dst = n
		}
	}
	return criteria.Parse(fields, q["filter"], q["order"], limit, offset)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r, criteria.JobFields)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	jobs, err := s.store.ListJobs(r.Context(), c)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []*dataio.Job{}
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleCountJobs(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r, criteria.JobFields)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := s.store.CountJobs(r.Context(), c)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r, criteria.ChunkFields)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	chunks, err := s.store.ListChunks(r.Context(), c)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if chunks == nil {
		chunks = []*dataio.Chunk{}
	}
	s.writeJSON(w, http.StatusOK, chunks)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	c, err := parseCriteria(r, criteria.ItemFields)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	items, err := s.store.ListItems(r.Context(), c)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []*dataio.Item{}
	}
	s.writeJSON(w, http.StatusOK, items)
}
