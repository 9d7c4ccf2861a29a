// Package session owns the state of one open folder: the scanned catalog,
// the cull decision store, caches, and sidecar persistence. The UI layer
// drives it with already-resolved intents; blocking work runs on the worker
// pool and reports back over the session's event channel, keeping all
// mutation on the caller's goroutine.
package session
