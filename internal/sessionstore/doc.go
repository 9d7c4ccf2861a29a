// Package sessionstore persists cross-session application state: the recent
// folder list and a journal of cull decisions, backed by SQLite. The journal
// lets a crashed session recover decisions that never reached a sidecar.
package sessionstore
