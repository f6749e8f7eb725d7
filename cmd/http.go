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
	"io"
	"os"
	"os/signal"

	"github.com/dbcdk/dataio/http"
	"github.com/dbcdk/dataio/ingest"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// ServeMain holds the stores served by NewServeCommand and is only exported
// for testing purposes.
var ServeMain *ingest.Main

// NewServeCommand returns a new cobra command serving the job-store over HTTP.
func NewServeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ServeMain = ingest.NewMain()
	var bind string
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "serve job creation and listing over HTTP",
		Long: `Serves the job-store over HTTP:

  POST /jobs         create a job from a JSON job specification
  GET  /jobs         list jobs
  GET  /jobs/count   count jobs
  GET  /jobs/{id}    get a job
  GET  /chunks       list chunks
  GET  /items        list items

Listings take repeated "filter" and "order" parameters plus "limit" and
"offset", using the same syntax as the list subcommand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ServeMain.Setup(context.Background()); err != nil {
				return err
			}
			defer ServeMain.Close()
			s := http.NewServer(ServeMain.JobStore(), ServeMain.Store(),
				http.WithAddr(bind), http.WithLogger(ServeMain.Log()))
			signals := make(chan os.Signal, 1)
			signal.Notify(signals, os.Interrupt)
			go func() {
				<-signals
				if err := s.Close(); err != nil {
					ServeMain.Log().Printf("closing server: %v", err)
				}
			}()
			ServeMain.Log().Printf("serving on %s", bind)
			return s.Serve()
		},
	}
	flags := serveCommand.Flags()
	flags.StringVar(&bind, "bind", ":8080", "Address to listen on.")
	err := commandeer.Flags(flags, ServeMain)
	if err != nil {
		panic(err)
	}
	return serveCommand
}

func init() {
	subcommandFns["serve"] = NewServeCommand
}
