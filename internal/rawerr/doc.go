// Package rawerr defines the error taxonomy shared across the culling
// pipeline. Components wrap failures with a sentinel marker so callers can
// classify them with errors.Is without parsing message text.
package rawerr
