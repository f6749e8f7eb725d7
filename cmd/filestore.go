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

	"github.com/dbcdk/dataio/ingest"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewFileStoreCommand returns a new cobra command adding data files to the
// file-store.
func NewFileStoreCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var path, bucket, region, prefix string
	fileStoreCommand := &cobra.Command{
		Use:   "filestore",
		Short: "manage the file-store holding data files",
	}
	flags := fileStoreCommand.PersistentFlags()
	flags.StringVar(&path, "file-store-path", "filestore", "Directory of the file-store.")
	flags.StringVar(&bucket, "s3-bucket", "", "S3 bucket holding data files. If set, it is used instead of the file-store directory.")
	flags.StringVar(&region, "s3-region", "", "AWS region of the S3 bucket.")
	flags.StringVar(&prefix, "s3-prefix", "", "Key prefix of data files in the S3 bucket.")

	add := &cobra.Command{
		Use:   "add file...",
		Short: "add data files and print their file-store URNs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := ingest.OpenFileStore(path, bucket, region, prefix)
			if err != nil {
				return err
			}
			ctx := context.Background()
			for _, name := range args {
				f, err := os.Open(name)
				if err != nil {
					return errors.Wrap(err, "opening data file")
				}
				urn, err := fs.Add(ctx, f)
				f.Close()
				if err != nil {
					return errors.Wrapf(err, "adding %s", name)
				}
				if _, err := fmt.Fprintf(stdout, "%s\t%s\n", urn, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
	fileStoreCommand.AddCommand(add)
	return fileStoreCommand
}

func init() {
	subcommandFns["filestore"] = NewFileStoreCommand
}
