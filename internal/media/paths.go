package media

import (
	"path"
)

// PathFor derives the storage location for a content hash. The hash is
// split into division two-character segments forming a nested directory
// tree; the remainder of the hash is the base filename. Pure function:
// every caller computes the same path for the same hash without
// coordination.
func PathFor(hash string, division int) (dir string, base string) {
	segments := make([]string, 0, division)

	counter := 0
	for counter+1 < division*2 && counter+2 < len(hash) {
		segments = append(segments, hash[counter:counter+2])
		counter += 2
	}

	return path.Join(segments...), hash[counter:]
}

// Filenames returns the per-derivative file names for a base name and
// extension: full keeps the plain name, mid and thumb get a suffix.
func Filenames(base string, ext string) map[string]string {
	return map[string]string{
		SizeFull:  base + "." + ext,
		SizeMid:   base + "-mid." + ext,
		SizeThumb: base + "-thumb." + ext,
	}
}

// Derivative size names
const (
	SizeFull  = "full"
	SizeMid   = "mid"
	SizeThumb = "thumb"
)
