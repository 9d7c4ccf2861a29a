// Package workers runs decode and overlay jobs on a bounded pool with
// priority ordering and pending-key coalescing.
package workers
