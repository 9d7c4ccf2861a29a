package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"rawpick/internal/cullstate"
	"rawpick/internal/rawdecode"
	"rawpick/internal/scanner"
	"rawpick/internal/xmpsync"
)

func newSidecarCommand(ctx *commandContext) *cobra.Command {
	sidecarCmd := &cobra.Command{
		Use:   "sidecar",
		Short: "XMP sidecar utilities",
	}

	sidecarCmd.AddCommand(newSidecarFlushCommand(ctx))
	return sidecarCmd
}

func newSidecarFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush <folder>",
		Short: "Write XMP sidecars for every photo carrying a cull decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			root, err := resolveFolder(args[0])
			if err != nil {
				return err
			}

			catalog, err := scanner.New(scanner.WithOrientationReader(rawdecode.Orientation)).Scan(root)
			if err != nil {
				return err
			}

			store := cullstate.NewStore(catalog)
			syncer := xmpsync.NewSyncer(store, logger)
			if _, err := syncer.LoadAll(cmd.Context()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			written := 0
			for _, entry := range store.Snapshot() {
				state := entry.State
				if !state.Picked && state.Rating == 0 && state.Label == cullstate.LabelNone {
					continue
				}
				path, err := syncer.EnsureSidecar(cmd.Context(), entry.Asset.Path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", filepath.Base(path))
				written++
			}
			fmt.Fprintf(out, "%d sidecars written\n", written)
			return nil
		},
	}
}
