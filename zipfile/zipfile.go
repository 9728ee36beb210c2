// Package zipfile writes PK zip archives with deflate-compressed entries
// and a conditional zip64 trailer.
//
// The writer is append-only: entries are streamed through [Writer.WriteFile]
// and the central directory is emitted by [Writer.Close]. Each entry's
// compressed payload is fully materialized in memory before its local header
// is written, because the header declares both sizes up front (no streaming
// data descriptor). Memory use is therefore bounded by the largest single
// entry, not the whole archive.
package zipfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"math"
	"path"
	"time"

	"github.com/klauspost/compress/flate"
)

// Errors returned by the writer.
var (
	// ErrNameTooLong is returned when an in-archive filename exceeds the
	// 16-bit length field of the zip headers.
	ErrNameTooLong = errors.New("zipfile: filename exceeds 65535 bytes")

	// ErrTimestampRange is returned when a modification time cannot be
	// represented as a DOS timestamp (before 1980 or after 2107).
	ErrTimestampRange = errors.New("zipfile: timestamp outside DOS range")

	// ErrClosed is returned when writing to an already-finalized archive.
	ErrClosed = errors.New("zipfile: writer is closed")
)

const (
	localHeaderSig  = 0x04034b50
	centralDirSig   = 0x02014b50
	zip64EndSig     = 0x06064b50
	zip64LocatorSig = 0x07064b50
	endOfDirSig     = 0x06054b50

	// Version 4.5, the minimum that understands zip64 structures.
	zipVersion = 45

	methodDeflate = 8

	max32 = uint64(math.MaxUint32)
)

// entry captures everything Close needs to reconstruct an entry's
// central-directory header. The full set is retained until Close completes;
// it is the sole source for the central directory.
type entry struct {
	name       string
	size       uint64
	compressed uint64
	offset     uint64
	modified   time.Time
	crc        uint32
}

// Writer streams zip entries to a byte sink.
type Writer struct {
	sink    io.Writer
	root    string
	level   int
	offset  uint64
	entries []entry
	closed  bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithRoot nests all entries under a single top-level path component.
func WithRoot(prefix string) Option {
	return func(w *Writer) {
		w.root = prefix
	}
}

// WithLevel sets the deflate compression level.
func WithLevel(level int) Option {
	return func(w *Writer) {
		w.level = level
	}
}

// NewWriter creates a zip writer targeting sink. The sink only needs to
// support sequential writes; offsets are tracked internally.
func NewWriter(sink io.Writer, opts ...Option) *Writer {
	w := &Writer{
		sink:  sink,
		level: flate.DefaultCompression,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteFile adds one file entry. The in-archive name is the configured root
// joined with subpath. The reader is consumed to EOF; info supplies the
// modification time.
//
// The raw content is CRC32-hashed while being deflated into an in-memory
// buffer, so both sizes and the checksum are known before the local header
// is written.
func (w *Writer) WriteFile(subpath string, r io.Reader, info fs.FileInfo) error {
	if w.closed {
		return ErrClosed
	}

	name := subpath
	if w.root != "" {
		name = path.Join(w.root, subpath)
	}
	if len(name) > math.MaxUint16 {
		return fmt.Errorf("%w: %q... is %d bytes", ErrNameTooLong, name[:40], len(name))
	}

	modified := info.ModTime()
	date, tod, err := dosDateTime(modified)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	var buf bytes.Buffer
	crc := crc32.NewIEEE()
	fw, err := flate.NewWriter(&buf, w.level)
	if err != nil {
		return fmt.Errorf("create deflate writer: %w", err)
	}
	size, err := io.Copy(fw, io.TeeReader(r, crc))
	if err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("flush deflate writer: %w", err)
	}

	e := entry{
		name:       name,
		size:       uint64(size),
		compressed: uint64(buf.Len()),
		offset:     w.offset,
		modified:   modified,
		crc:        crc.Sum32(),
	}

	extra := zip64Extra(e.size, e.compressed, e.offset)
	hdr := make(record, 0, 30+len(name)+len(extra))
	hdr = hdr.uint32(localHeaderSig)
	hdr = hdr.uint16(zipVersion)
	hdr = hdr.uint16(0) // no flags: sizes are declared up front
	hdr = hdr.uint16(methodDeflate)
	hdr = hdr.uint16(tod)
	hdr = hdr.uint16(date)
	hdr = hdr.uint32(e.crc)
	hdr = hdr.uint32(saturate32(e.compressed))
	hdr = hdr.uint32(saturate32(e.size))
	hdr = hdr.uint16(uint16(len(name)))
	hdr = hdr.uint16(uint16(len(extra)))
	hdr = append(hdr, name...)
	hdr = append(hdr, extra...)

	if err := w.write(hdr); err != nil {
		return err
	}
	if err := w.write(buf.Bytes()); err != nil {
		return err
	}

	w.entries = append(w.entries, e)
	return nil
}

// Close emits the central directory and the end-of-archive trailer. If the
// entry count or the directory's size or offset exceed the legacy 16/32-bit
// limits, a zip64 end-of-central-directory record and locator precede the
// classic trailer, whose overflowing fields are then saturated to all-ones.
//
// No writes are permitted after Close.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	dirOffset := w.offset
	for _, e := range w.entries {
		date, tod, err := dosDateTime(e.modified)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}

		extra := zip64Extra(e.size, e.compressed, e.offset)
		hdr := make(record, 0, 46+len(e.name)+len(extra))
		hdr = hdr.uint32(centralDirSig)
		hdr = hdr.uint16(zipVersion) // version made by
		hdr = hdr.uint16(zipVersion) // version needed to extract
		hdr = hdr.uint16(0)          // flags
		hdr = hdr.uint16(methodDeflate)
		hdr = hdr.uint16(tod)
		hdr = hdr.uint16(date)
		hdr = hdr.uint32(e.crc)
		hdr = hdr.uint32(saturate32(e.compressed))
		hdr = hdr.uint32(saturate32(e.size))
		hdr = hdr.uint16(uint16(len(e.name)))
		hdr = hdr.uint16(uint16(len(extra)))
		hdr = hdr.uint16(0) // comment length
		hdr = hdr.uint16(0) // disk number start
		hdr = hdr.uint16(0) // internal attributes
		hdr = hdr.uint32(0) // external attributes
		hdr = hdr.uint32(saturate32(e.offset))
		hdr = append(hdr, e.name...)
		hdr = append(hdr, extra...)

		if err := w.write(hdr); err != nil {
			return err
		}
	}

	dirSize := w.offset - dirOffset
	count := uint64(len(w.entries))

	if count > math.MaxUint16 || dirSize > max32 || dirOffset > max32 {
		zip64Offset := w.offset

		rec := make(record, 0, 56)
		rec = rec.uint32(zip64EndSig)
		rec = rec.uint64(44) // size of the record below this field
		rec = rec.uint16(zipVersion)
		rec = rec.uint16(zipVersion)
		rec = rec.uint32(0) // this disk
		rec = rec.uint32(0) // disk with the central directory
		rec = rec.uint64(count)
		rec = rec.uint64(count)
		rec = rec.uint64(dirSize)
		rec = rec.uint64(dirOffset)
		if err := w.write(rec); err != nil {
			return err
		}

		loc := make(record, 0, 20)
		loc = loc.uint32(zip64LocatorSig)
		loc = loc.uint32(0) // disk with the zip64 end record
		loc = loc.uint64(zip64Offset)
		loc = loc.uint32(1) // total disks
		if err := w.write(loc); err != nil {
			return err
		}
	}

	end := make(record, 0, 22)
	end = end.uint32(endOfDirSig)
	end = end.uint16(0) // this disk
	end = end.uint16(0) // disk with the central directory
	end = end.uint16(saturate16(count))
	end = end.uint16(saturate16(count))
	end = end.uint32(saturate32(dirSize))
	end = end.uint32(saturate32(dirOffset))
	end = end.uint16(0) // comment length
	return w.write(end)
}

func (w *Writer) write(p []byte) error {
	n, err := w.sink.Write(p)
	w.offset += uint64(n)
	if err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// zip64Extra builds the zip64 extended-information extra field. Only values
// that individually exceed the 32-bit maximum are included, in the fixed
// order uncompressed size, compressed size, local-header offset. Returns nil
// when nothing overflows.
func zip64Extra(size, compressed, offset uint64) []byte {
	var fields []uint64
	if size > max32 {
		fields = append(fields, size)
	}
	if compressed > max32 {
		fields = append(fields, compressed)
	}
	if offset > max32 {
		fields = append(fields, offset)
	}
	if len(fields) == 0 {
		return nil
	}

	extra := make(record, 0, 4+8*len(fields))
	extra = extra.uint16(0x0001)
	extra = extra.uint16(uint16(8 * len(fields)))
	for _, v := range fields {
		extra = extra.uint64(v)
	}
	return extra
}

// saturate32 clamps a value to the 32-bit all-ones sentinel, signaling
// "consult the zip64 extra field". Values are never wrapped.
func saturate32(v uint64) uint32 {
	if v > max32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func saturate16(v uint64) uint16 {
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// record accumulates little-endian header fields.
type record []byte

func (r record) uint16(v uint16) record { return binary.LittleEndian.AppendUint16(r, v) }
func (r record) uint32(v uint32) record { return binary.LittleEndian.AppendUint32(r, v) }
func (r record) uint64(v uint64) record { return binary.LittleEndian.AppendUint64(r, v) }
