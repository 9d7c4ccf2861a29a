// Package overlay computes the exposure-analysis views rendered on top of a
// decoded photo: the zebra clipping mask, per-channel histograms, and the
// faux-HDR tone-mapped preview. Every function here is a pure, deterministic
// read-only view over its input, which is what makes the results cacheable.
package overlay
