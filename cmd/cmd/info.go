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
	"text/tabwriter"

	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/ostafen/ntfstriage/internal/env"
	"github.com/ostafen/ntfstriage/internal/image"
	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/ostafen/ntfstriage/internal/pipeline"
	"github.com/ostafen/ntfstriage/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "info <image_path>",
		Short:        "Print the partition table and NTFS volume layout of an image",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInfo,
	}
	return cmd
}

func RunInfo(cmd *cobra.Command, args []string) error {
	path := disk.NormalizeVolumePath(args[0])

	src, err := image.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	partitions, err := pipeline.DiscoverPartitions(src)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\nimage: %s (%s)\n\n", env.ToolVersion(), path, format.FormatBytes(src.Length()))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tOFFSET\tSIZE\tNTFS\tCLUSTER\tMFT ENTRY\tIDX ENTRY")
	for _, p := range partitions {
		offset := format.FormatBytes(int64(p.StartOffsetByte))
		size := format.FormatBytes(int64(p.LengthByte))

		if !p.IsNTFS {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t-\t-\t-\n", p.Index, offset, size, p.IsNTFS)
			continue
		}

		vol, err := ntfs.OpenVolume(src, int64(p.StartOffsetByte))
		if err != nil {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\tERROR: %v\t-\t-\n", p.Index, offset, size, p.IsNTFS, err)
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%d\t%d\t%d\n",
			p.Index, offset, size, p.IsNTFS, vol.ClusterSize, vol.MftEntrySize, vol.IdxEntrySize)
	}
	return w.Flush()
}
