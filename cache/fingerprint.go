package cache

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint accumulates a deterministic hash over archive inputs.
//
// Strings are folded with a length prefix so adjacent fields cannot alias
// ("ab"+"c" vs "a"+"bc"). File content is folded raw via [Fingerprint.Write].
// Identical input content and layout produce an identical key regardless of
// filesystem location or sub-second timestamp noise.
type Fingerprint struct {
	h *blake3.Hasher
}

// NewFingerprint creates an empty fingerprint accumulator.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{h: blake3.New()}
}

// Write folds raw bytes into the fingerprint. It never fails; the error
// return satisfies io.Writer so file content can be streamed in with io.Copy.
func (f *Fingerprint) Write(p []byte) (int, error) {
	return f.h.Write(p)
}

// WriteString folds a length-prefixed string field into the fingerprint.
func (f *Fingerprint) WriteString(s string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	f.h.Write(n[:])
	f.h.WriteString(s)
}

// WriteUint64 folds a fixed-width integer field into the fingerprint.
func (f *Fingerprint) WriteUint64(v uint64) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], v)
	f.h.Write(n[:])
}

// Key finalizes the accumulated state to a cache key. The accumulator
// remains usable; further folds produce a new, different key.
func (f *Fingerprint) Key() Key {
	return Key(hex.EncodeToString(f.h.Sum(nil)))
}
