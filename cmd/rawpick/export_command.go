package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"rawpick/internal/export"
	"rawpick/internal/session"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		prune       bool
		concurrency int
		rawFolder   string
		jpegFolder  string
	)

	cmd := &cobra.Command{
		Use:   "export <folder>",
		Short: "Copy picked RAWs, sidecars, and paired JPEGs into the selection folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			return ctx.withSession(cmd, args[0], func(runCtx context.Context, sess *session.Session) error {
				opts := export.Options{
					RawFolderName:  cfg.Export.RawFolderName,
					JPEGFolderName: cfg.Export.JPEGFolderName,
					Prune:          cfg.Export.Prune,
					Concurrency:    cfg.Export.Concurrency,
					MinFreeBytes:   int64(cfg.Export.MinFreeSpaceMiB) * 1024 * 1024,
				}
				if cmd.Flags().Changed("prune") {
					opts.Prune = prune
				}
				if concurrency > 0 {
					opts.Concurrency = concurrency
				}
				if rawFolder != "" {
					opts.RawFolderName = rawFolder
				}
				if jpegFolder != "" {
					opts.JPEGFolderName = jpegFolder
				}

				out := cmd.OutOrStdout()
				if stdoutIsTerminal() {
					opts.OnItem = func(item export.Item) {
						marker := "ok"
						if item.Failed() {
							marker = "FAILED"
						}
						fmt.Fprintf(out, "  %s %s\n", marker, filepath.Base(item.Asset.Path))
					}
				}

				engine := export.NewEngine(sess.Store(), sess.Syncer(), logger)
				manifest, err := engine.Export(runCtx, opts)
				if err != nil {
					return err
				}

				renderManifest(out, manifest)
				if failures := manifest.Failures(); failures > 0 {
					return fmt.Errorf("export completed with %d failed items", failures)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&prune, "prune", false, "Remove destination files for photos that are no longer picked (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel item copies (default from config)")
	cmd.Flags().StringVar(&rawFolder, "raw-folder", "", "Name of the RAW selection folder (default from config)")
	cmd.Flags().StringVar(&jpegFolder, "jpeg-folder", "", "Name of the JPEG selection folder (default from config)")
	return cmd
}
