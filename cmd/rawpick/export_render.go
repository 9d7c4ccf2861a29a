package main

import (
	"fmt"
	"io"
	"path/filepath"

	"rawpick/internal/export"
)

func renderManifest(out io.Writer, manifest *export.Manifest) {
	if len(manifest.Items) == 0 {
		fmt.Fprintln(out, "Nothing picked; nothing exported")
		return
	}

	rows := make([][]string, 0, len(manifest.Items))
	for _, item := range manifest.Items {
		rows = append(rows, []string{
			filepath.Base(item.Asset.Path),
			formatResult(item.Raw),
			formatResult(item.Sidecar),
			formatResult(item.JPEG),
		})
	}

	if stdoutIsTerminal() {
		fmt.Fprintln(out, renderTable(
			[]string{"File", "RAW", "Sidecar", "JPEG"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
	} else {
		for _, row := range rows {
			fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", row[0], row[1], row[2], row[3])
		}
	}

	fmt.Fprintf(out, "Exported %d items to %s and %s (run %s)\n",
		len(manifest.Items), manifest.RawDir, manifest.JPEGDir, manifest.RunID)
	for _, pruned := range manifest.Pruned {
		fmt.Fprintf(out, "Pruned %s\n", pruned)
	}
}

func formatResult(result export.FileResult) string {
	if result.Outcome == "" {
		return "-"
	}
	if result.Err != nil {
		return fmt.Sprintf("%s: %v", result.Outcome, result.Err)
	}
	return string(result.Outcome)
}
