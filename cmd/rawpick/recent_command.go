package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecentCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently opened folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			journal, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer journal.Close()

			folders, err := journal.RecentFolders(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(folders) == 0 {
				fmt.Fprintln(out, "No recent folders")
				return nil
			}

			if !stdoutIsTerminal() {
				for _, folder := range folders {
					fmt.Fprintf(out, "%s\t%s\n", folder.Path, folder.OpenedAt.Format("2006-01-02 15:04"))
				}
				return nil
			}

			rows := make([][]string, 0, len(folders))
			for _, folder := range folders {
				rows = append(rows, []string{folder.Path, folder.OpenedAt.Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Folder", "Opened"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum folders to list")
	return cmd
}
