// Package export copies picked RAW files with their sidecars into one output
// folder and their paired JPEGs into another, reporting per-item outcomes in
// a manifest. Export is best-effort: one failed item never aborts the rest.
package export
