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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dbcdk/dataio"
	"github.com/dbcdk/dataio/criteria"
	"github.com/dbcdk/dataio/ingest"
	"github.com/dbcdk/dataio/jobstore"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ListConfig is used by NewListCommand and only exported for testing
// purposes.
type ListConfig struct {
	BoltPath    string
	PostgresURL string
	Order       []string
	Limit       int
	Offset      int
	Count       bool
}

// List is the configuration of the most recently created list command.
var List *ListConfig

// NewListCommand returns a new cobra command listing jobs, chunks or items.
func NewListCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	List = &ListConfig{}
	listCommand := &cobra.Command{
		Use:   "list",
		Short: "list jobs, chunks or items",
		Long: `Lists jobs, chunks or items matching the filters given as arguments, one
JSON document per line.

A filter is written "FIELD OP [VALUE]", e.g.

  dataio list jobs "JOB_ID GREATER_THAN 10" "OR WITH_FATAL_ERROR IS_NOT_NULL"

Filters are combined with AND unless prefixed with "OR ".`,
	}
	flags := listCommand.PersistentFlags()
	flags.StringVar(&List.BoltPath, "bolt-path", "dataio.db", "Bolt file holding jobs, chunks and items.")
	flags.StringVar(&List.PostgresURL, "postgres-url", "", "PostgreSQL URL. If set, it is used instead of the bolt file.")
	flags.StringSliceVarP(&List.Order, "order", "o", nil, "Orderings written \"FIELD [ASC|DESC]\".")
	flags.IntVarP(&List.Limit, "limit", "l", 0, "Maximum number of results. 0 means no limit.")
	flags.IntVar(&List.Offset, "offset", 0, "Number of results to skip.")

	jobs := &cobra.Command{
		Use:   "jobs [filter...]",
		Short: "list jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := criteria.Parse(criteria.JobFields, args, List.Order, List.Limit, List.Offset)
			if err != nil {
				return err
			}
			return List.withStore(func(ctx context.Context, s jobstore.Store) error {
				if List.Count {
					n, err := s.CountJobs(ctx, c)
					if err != nil {
						return errors.Wrap(err, "counting jobs")
					}
					_, err = fmt.Fprintln(stdout, n)
					return err
				}
				jobs, err := s.ListJobs(ctx, c)
				if err != nil {
					return errors.Wrap(err, "listing jobs")
				}
				return writeAll(stdout, jobs)
			})
		},
	}
	jobs.Flags().BoolVar(&List.Count, "count", false, "Only print the number of jobs, ignoring limit and offset.")

	chunks := &cobra.Command{
		Use:   "chunks [filter...]",
		Short: "list chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := criteria.Parse(criteria.ChunkFields, args, List.Order, List.Limit, List.Offset)
			if err != nil {
				return err
			}
			return List.withStore(func(ctx context.Context, s jobstore.Store) error {
				chunks, err := s.ListChunks(ctx, c)
				if err != nil {
					return errors.Wrap(err, "listing chunks")
				}
				return writeAll(stdout, chunks)
			})
		},
	}

	items := &cobra.Command{
		Use:   "items [filter...]",
		Short: "list items",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := criteria.Parse(criteria.ItemFields, args, List.Order, List.Limit, List.Offset)
			if err != nil {
				return err
			}
			return List.withStore(func(ctx context.Context, s jobstore.Store) error {
				items, err := s.ListItems(ctx, c)
				if err != nil {
					return errors.Wrap(err, "listing items")
				}
				return writeAll(stdout, items)
			})
		},
	}
	listCommand.AddCommand(jobs, chunks, items)
	return listCommand
}

func (l *ListConfig) withStore(fn func(ctx context.Context, s jobstore.Store) error) (err error) {
	ctx := context.Background()
	s, err := ingest.OpenStore(ctx, l.BoltPath, l.PostgresURL)
	if err != nil {
		return err
	}
	defer func() {
		var errs dataio.Errors
		err = errs.Append(err).Append(s.Close()).Err()
	}()
	return fn(ctx, s)
}

// writeAll writes every element of vs as a line of JSON.
func writeAll[T any](w io.Writer, vs []T) error {
	enc := json.NewEncoder(w)
	for _, v := range vs {
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "writing")
		}
	}
	return nil
}

func init() {
	subcommandFns["list"] = NewListCommand
}
