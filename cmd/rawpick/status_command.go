package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"rawpick/internal/cullstate"
	"rawpick/internal/logging"
	"rawpick/internal/rawdecode"
	"rawpick/internal/scanner"
	"rawpick/internal/xmpsync"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var pickedOnly bool

	cmd := &cobra.Command{
		Use:   "status <folder>",
		Short: "Show pick, rating, and label state from the folder's sidecars",
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

			store := cullstate.NewStore(catalog)
			if _, err := xmpsync.NewSyncer(store, logging.NewNop()).LoadAll(cmd.Context()); err != nil {
				return err
			}

			entries := store.Snapshot()
			picked := 0
			rows := make([][]string, 0, len(entries))
			for i, entry := range entries {
				if entry.State.Picked {
					picked++
				}
				if pickedOnly && !entry.State.Picked {
					continue
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					filepath.Base(entry.Asset.Path),
					yesNo(entry.State.Picked),
					formatRating(entry.State.Rating),
					formatLabel(entry.State.Label),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "Nothing to show in %s\n", root)
				return nil
			}

			if !stdoutIsTerminal() {
				for _, row := range rows {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", row[1], row[2], row[3], row[4])
				}
				return nil
			}

			fmt.Fprintln(out, renderTable(
				[]string{"#", "File", "Picked", "Rating", "Label"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintf(out, "%d of %d picked\n", picked, catalog.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&pickedOnly, "picked", false, "Only show picked photos")
	return cmd
}

func formatRating(rating int) string {
	if rating == 0 {
		return "-"
	}
	stars := ""
	for i := 0; i < rating; i++ {
		stars += "*"
	}
	return stars
}

func formatLabel(label cullstate.Label) string {
	if label == cullstate.LabelNone {
		return "-"
	}
	return string(label)
}
