// Package xmpsync maps cull decisions to XMP sidecar files and back.
//
// Three fields are owned here: xmp:Rating, xmp:Label, and photoshop:Urgency
// (1 marks a picked photo, matching what photo tools in the wild write).
// Everything else found in an existing sidecar passes through a flush
// untouched: writes are read-modify-write over the parsed document, never
// overwrite-from-scratch.
package xmpsync
