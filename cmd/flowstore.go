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
	"fmt"
	"io"
	"os"

	"github.com/dbcdk/dataio/leveldb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewFlowStoreCommand returns a new cobra command managing the leveldb
// flow-store.
func NewFlowStoreCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var path string
	flowStoreCommand := &cobra.Command{
		Use:   "flowstore",
		Short: "manage the flow-store jobs are resolved against",
	}
	flowStoreCommand.PersistentFlags().StringVar(&path, "flow-store-path", "flowstore", "Directory of the leveldb flow-store.")

	load := &cobra.Command{
		Use:   "load [file...]",
		Short: "put submitters, flows, sinks and flow binders from JSON files",
		Long: `Reads JSON documents of the form

  {"submitters": [...], "flows": [...], "sinks": [...], "flowBinders": [...]}

from the given files, or stdin if none are given, and puts every entity into
the flow-store. Entities without an id get a new one.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			fs, err := leveldb.NewFlowStore(path)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := fs.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			ctx := context.Background()
			if len(args) == 0 {
				return loadEntities(ctx, fs, stdin, "stdin", stdout)
			}
			for _, name := range args {
				f, err := os.Open(name)
				if err != nil {
					return errors.Wrap(err, "opening entities")
				}
				err = loadEntities(ctx, fs, f, name, stdout)
				f.Close()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	sinks := &cobra.Command{
		Use:   "sinks",
		Short: "list the sinks in the flow-store",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			fs, err := leveldb.NewFlowStore(path)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := fs.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()
			sinks, err := fs.Sinks(context.Background())
			if err != nil {
				return err
			}
			return writeAll(stdout, sinks)
		},
	}
	flowStoreCommand.AddCommand(load, sinks)
	return flowStoreCommand
}

func loadEntities(ctx context.Context, fs *leveldb.FlowStore, r io.Reader, name string, stdout io.Writer) error {
	e, err := fs.Load(ctx, r)
	if err != nil {
		return errors.Wrapf(err, "loading %s", name)
	}
	_, err = fmt.Fprintf(stdout, "%s: %d entities\n", name, e.Len())
	return err
}

func init() {
	subcommandFns["flowstore"] = NewFlowStoreCommand
}
