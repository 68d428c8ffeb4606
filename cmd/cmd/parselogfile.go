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

func DefineParseLogFileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "parse-logfile <image_path>",
		Short:        "Decode $LogFile restart area and record-area page headers to a CSV, JSON or SQLite sink",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunParseLogFile,
	}
	addCommonFlags(cmd)
	addSinkFlags(cmd)
	return cmd
}

func RunParseLogFile(cmd *cobra.Command, args []string) error {
	s, err := openSink(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	pipe, err := openPipeline(cmd, args[0], s, false)
	if err != nil {
		return err
	}
	defer pipe.Close()

	stats, err := pipe.ParseLogFile(cmd.Context())
	if err != nil {
		return err
	}
	printStats(cmd, "parse-logfile", stats)
	return nil
}
