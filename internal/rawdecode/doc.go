// Package rawdecode turns RAW camera files into displayable pixel buffers.
//
// The decoders do not demosaic sensor data; they locate and decode the JPEG
// previews every RAW container embeds, which is what responsive culling
// needs. TIFF-structured containers (CR2, NEF, ARW, DNG, PEF, SRW, ORF, RW2)
// get a proper IFD walk; everything else falls back to a byte scan for JPEG
// streams. The registry is pluggable so a real demosaicing decoder can be
// registered in front of the built-ins.
package rawdecode
