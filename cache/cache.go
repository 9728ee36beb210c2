// Package cache provides content-addressed caching for built archives.
//
// Keys are BLAKE3 fingerprints folded over every archive input's layout and
// content. Because a key pins the exact inputs, a hit can be returned
// without re-reading or re-verifying the archive.
package cache

// Key is a hex-encoded content fingerprint identifying one archive build.
type Key string

// Cache maps fingerprints to previously built archive files.
//
// A failed build must never commit, so downstream consumers cannot observe
// a partial archive as a hit. Callers serialize concurrent access to any
// shared slot.
type Cache interface {
	// Lookup reports whether a prior committed result exists for key and,
	// if so, the path of the archive it produced.
	Lookup(key Key) (string, bool)

	// Commit records path as the result for key, moving the file into the
	// cache's content-addressed slot. It must be called only after the
	// archive is fully flushed. Returns the final archive path.
	Commit(key Key, path string) (string, error)
}
