// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"github.com/spf13/cobra"
)

func DefineParseMftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "parse-mft <image_path>",
		Short:        "Decode every $MFT entry to a CSV, JSON or SQLite sink",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunParseMft,
	}
	addCommonFlags(cmd)
	addSinkFlags(cmd)
	cmd.Flags().Bool("include-path", false, "resolve each entry's full path (runs a second, build-only pass over the MFT first)")
	return cmd
}

func RunParseMft(cmd *cobra.Command, args []string) error {
	s, err := openSink(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	includePath, _ := cmd.Flags().GetBool("include-path")

	pipe, err := openPipeline(cmd, args[0], s, includePath)
	if err != nil {
		return err
	}
	defer pipe.Close()

	stats, err := pipe.ParseMFT(cmd.Context())
	if err != nil {
		return err
	}
	printStats(cmd, "parse-mft", stats)
	return nil
}
