// Package config loads, normalizes, and validates the rawpick configuration.
// All tunables the pipeline exposes (cache budget, zebra thresholds, faux-HDR
// parameters, export layout, worker sizing) live here so components never
// hard-code product-tunable values.
package config
