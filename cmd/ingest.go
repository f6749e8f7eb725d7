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
	"io"
	"time"

	"github.com/dbcdk/dataio/ingest"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// IngestMain is wrapped by NewIngestCommand and only exported for testing
// purposes.
var IngestMain *ingest.Main

// NewIngestCommand returns a new cobra command wrapping IngestMain.
func NewIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	IngestMain = ingest.NewMain()
	IngestMain.SetOutput(stdout)
	ingestCommand := &cobra.Command{
		Use:   "ingest",
		Short: "create a job for every job specification file",
		Long: `Reads TOML job specifications from a file or a directory of files, resolves
them against the flow-store and partitions their data files into chunks.
Every job created is written to stdout as a line of JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err := IngestMain.Run()
			if err != nil {
				return err
			}
			IngestMain.Log().Printf("Done: %v", time.Since(start))
			return nil
		},
	}
	flags := ingestCommand.Flags()
	err := commandeer.Flags(flags, IngestMain)
	if err != nil {
		panic(err)
	}
	return ingestCommand
}

func init() {
	subcommandFns["ingest"] = NewIngestCommand
}
