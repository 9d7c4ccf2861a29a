package scanner

// Recognized RAW extensions, matching the camera formats the decoder knows
// how to probe. Lowercase with leading dot.
var rawExts = map[string]struct{}{
	".cr3": {},
	".cr2": {},
	".nef": {},
	".arw": {},
	".raf": {},
	".dng": {},
	".orf": {},
	".rw2": {},
	".srw": {},
	".pef": {},
}

var jpegExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
}

// IsRawExt reports whether ext (lowercase, with dot) is a recognized RAW extension.
func IsRawExt(ext string) bool {
	_, ok := rawExts[ext]
	return ok
}

// IsJPEGExt reports whether ext (lowercase, with dot) is a recognized JPEG extension.
func IsJPEGExt(ext string) bool {
	_, ok := jpegExts[ext]
	return ok
}

// RawExtensions returns the recognized RAW extension set as a slice, sorted
// order not guaranteed.
func RawExtensions() []string {
	out := make([]string, 0, len(rawExts))
	for ext := range rawExts {
		out = append(out, ext)
	}
	return out
}
