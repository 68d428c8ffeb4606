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
	"fmt"
	"io"
	"os"

	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/ostafen/ntfstriage/internal/logger"
	"github.com/ostafen/ntfstriage/internal/pipeline"
	"github.com/ostafen/ntfstriage/internal/progress"
	"github.com/ostafen/ntfstriage/pkg/sink"
	"github.com/spf13/cobra"
)

// addCommonFlags registers the image/partition/log flags every operation
// command shares.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Int("partition", -1, "partition index to open (default: first NTFS partition found)")
	cmd.Flags().String("log-file", "", "write a session log to this file (default: discard)")
	cmd.Flags().String("log-level", "INFO", "minimum log level: DEBUG, INFO, WARN, ERROR")
	cmd.Flags().Bool("no-progress", false, "disable the terminal progress bar")
	cmd.Flags().Bool("mmap", false, "memory-map the image file instead of using read(2) (local raw images only)")
}

// addSinkFlags registers the --output/--format flags for commands that
// write decoded records to a pkg/sink.RecordSink.
func addSinkFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "output file path for the decoded records")
	cmd.Flags().String("format", "csv", "output format: csv, json, or sqlite")
	cmd.MarkFlagRequired("output")
}

func openSink(cmd *cobra.Command) (sink.RecordSink, error) {
	output, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	return sink.Open(sink.Format(format), output)
}

// openPipeline opens the image at imagePath and bootstraps a pipeline.Pipeline
// from the flags addCommonFlags registered. s may be nil for operations (like
// extract) that never write to a sink.
func openPipeline(cmd *cobra.Command, imagePath string, s sink.RecordSink, includePath bool) (*pipeline.Pipeline, error) {
	partIndex, _ := cmd.Flags().GetInt("partition")
	logFilePath, _ := cmd.Flags().GetString("log-file")
	logLevel, _ := cmd.Flags().GetString("log-level")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	useMmap, _ := cmd.Flags().GetBool("mmap")

	lg, err := openLogger(logFilePath, logLevel)
	if err != nil {
		return nil, err
	}

	var reporter progress.Reporter = progress.NoOp
	if !noProgress {
		reporter = progress.NewTerminal()
	}

	return pipeline.Open(pipeline.Options{
		ImagePath:      disk.NormalizeVolumePath(imagePath),
		PartitionIndex: partIndex,
		IncludePath:    includePath,
		UseMmap:        useMmap,
		SessionID:      pipeline.GenSessionID(),
		Sink:           s,
		Progress:       reporter,
		Logger:         lg,
	})
}

func openLogger(path, level string) (*logger.Logger, error) {
	if path == "" {
		return logger.New(io.Discard, logger.ParseLevel(level)), nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return logger.New(f, logger.ParseLevel(level)), nil
}

func printStats(cmd *cobra.Command, op string, stats pipeline.Stats) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (%d corrupt) in %s [session %s]\n",
		op, stats.RecordsDecoded, stats.CorruptRecords, pipeline.FormatDurationHMS(stats.Duration), stats.SessionID)
}
