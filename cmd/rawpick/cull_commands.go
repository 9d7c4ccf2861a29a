package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rawpick/internal/cullstate"
	"rawpick/internal/session"
)

func newPickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pick <folder> <photo>...",
		Short: "Mark photos as picked",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyToPhotos(ctx, cmd, args[0], args[1:], func(string) session.Intent {
				return session.SetPicked(true)
			})
		},
	}
}

func newUnpickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unpick <folder> <photo>...",
		Short: "Clear the pick flag on photos",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyToPhotos(ctx, cmd, args[0], args[1:], func(string) session.Intent {
				return session.SetPicked(false)
			})
		},
	}
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <folder> <rating> <photo>...",
		Short: "Set the star rating (0-5) on photos",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q: expected 0-5", args[1])
			}
			return applyToPhotos(ctx, cmd, args[0], args[2:], func(string) session.Intent {
				return session.SetRating(rating)
			})
		},
	}
}

func newLabelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "label <folder> <color> <photo>...",
		Short: "Set the color label on photos (red, yellow, green, blue, purple, or none)",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, err := parseLabel(args[1])
			if err != nil {
				return err
			}
			return applyToPhotos(ctx, cmd, args[0], args[2:], func(string) session.Intent {
				return session.SetLabel(label)
			})
		},
	}
}

// applyToPhotos routes edits through a full session so journaling, sidecar
// flushing, and the folder lock all behave the same as interactive culling.
func applyToPhotos(cmdCtx *commandContext, cmd *cobra.Command, folder string, photos []string, intentFor func(path string) session.Intent) error {
	return cmdCtx.withSession(cmd, folder, func(ctx context.Context, sess *session.Session) error {
		out := cmd.OutOrStdout()
		for _, photo := range photos {
			idx, err := assetIndex(sess.Catalog(), sess.Root, photo)
			if err != nil {
				return err
			}
			if _, err := sess.Apply(ctx, session.NavigateTo(idx)); err != nil {
				return err
			}
			view, err := sess.Apply(ctx, intentFor(photo))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: picked=%s rating=%s label=%s\n",
				filepath.Base(view.Asset.Path),
				yesNo(view.State.Picked),
				formatRating(view.State.Rating),
				formatLabel(view.State.Label))
		}
		return nil
	})
}

func parseLabel(arg string) (cullstate.Label, error) {
	normalized := strings.ToLower(strings.TrimSpace(arg))
	if normalized == "none" {
		return cullstate.LabelNone, nil
	}
	label := cullstate.Label(normalized)
	if !cullstate.ValidLabel(label) {
		names := make([]string, 0, len(cullstate.Labels()))
		for _, l := range cullstate.Labels() {
			if l == cullstate.LabelNone {
				names = append(names, "none")
				continue
			}
			names = append(names, string(l))
		}
		return cullstate.LabelNone, fmt.Errorf("invalid label %q: expected one of %s", arg, strings.Join(names, ", "))
	}
	return label, nil
}
