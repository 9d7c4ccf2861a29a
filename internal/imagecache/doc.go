// Package imagecache keeps decoded previews and derived overlay products in
// memory under a byte budget, filling misses through the decoder exactly once
// per key.
package imagecache
