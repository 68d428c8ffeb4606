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
	"bytes"
	"path/filepath"
	"strings"

	"github.com/ostafen/ntfstriage/internal/fuse"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mount <image_path>",
		Short:        "Mount $MFT, $LogFile and $UsnJrnl:$J as plain files for inspection with other tools",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunMount,
	}
	addCommonFlags(cmd)
	cmd.Flags().StringP("mountpoint", "m", "", "directory to mount at (default: <image name>_mnt)")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	pipe, err := openPipeline(cmd, args[0], nil, false)
	if err != nil {
		return err
	}
	defer pipe.Close()

	artifacts, err := pipe.MaterializeArtifacts()
	if err != nil {
		return err
	}

	mountpoint, _ := cmd.Flags().GetString("mountpoint")
	if mountpoint == "" {
		mountpoint = defaultMountpoint(args[0])
	}

	entries := make(map[string]fuse.FileEntry, len(artifacts))
	for name, data := range artifacts {
		fileName := artifactFileName(name)
		entries[fileName] = fuse.FileEntry{
			Name: fileName,
			Data: bytes.NewReader(data),
			Size: uint64(len(data)),
		}
	}
	return fuse.Mount(mountpoint, entries)
}

func defaultMountpoint(imagePath string) string {
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_mnt"
}

func artifactFileName(name string) string {
	switch name {
	case "$MFT":
		return "MFT.bin"
	case "$LogFile":
		return "LogFile.bin"
	case "$UsnJrnl:$J":
		return "UsnJrnl_J.bin"
	default:
		return strings.Trim(name, "$:") + ".bin"
	}
}
