// Package cullstate owns the per-photo cull decisions of a session: pick,
// rating, and color label. The store is the single source of truth while the
// session runs; sidecar persistence and export consume snapshots of it.
package cullstate
