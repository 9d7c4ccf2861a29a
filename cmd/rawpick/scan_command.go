package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rawpick/internal/fileutil"
	"rawpick/internal/rawdecode"
	"rawpick/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <folder>",
		Short: "List the RAW photos a folder would open with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveFolder(args[0])
			if err != nil {
				return err
			}

			catalog, err := scanner.New(scanner.WithOrientationReader(rawdecode.Orientation)).Scan(root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if catalog.Len() == 0 {
				fmt.Fprintf(out, "No RAW photos in %s\n", root)
				return nil
			}

			if !stdoutIsTerminal() {
				for _, asset := range catalog.Assets {
					fmt.Fprintf(out, "%s\t%d\t%s\t%s\n",
						asset.Path, asset.Size, yesNo(asset.HasPairing()), yesNo(fileutil.Exists(asset.SidecarPath())))
				}
				return nil
			}

			rows := make([][]string, 0, catalog.Len())
			for i, asset := range catalog.Assets {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					filepath.Base(asset.Path),
					strings.TrimPrefix(strings.ToLower(filepath.Ext(asset.Path)), "."),
					formatBytes(asset.Size),
					yesNo(asset.HasPairing()),
					yesNo(fileutil.Exists(asset.SidecarPath())),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "File", "Format", "Size", "JPEG", "Sidecar"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d photos in %s\n", catalog.Len(), root)
			return nil
		},
	}
}

func formatBytes(size int64) string {
	const mib = 1024 * 1024
	if size >= mib {
		return fmt.Sprintf("%.1f MiB", float64(size)/float64(mib))
	}
	if size >= 1024 {
		return fmt.Sprintf("%.1f KiB", float64(size)/1024)
	}
	return fmt.Sprintf("%d B", size)
}
