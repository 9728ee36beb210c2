// Package tarball writes gzip-compressed tar streams, synthesizing
// directory records for every ancestor of each file.
//
// Tar has no trailing index, so entries stream straight through the
// compressor; each file's size is declared from its stat result. The writer
// guarantees that a directory record appears exactly once and strictly
// before every record nested beneath it.
package tarball

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ErrClosed is returned when writing to an already-closed archive.
var ErrClosed = errors.New("tarball: writer is closed")

const dirMode = 0o755

// Synthesized directories carry a fixed timestamp so archive bytes depend
// only on the inputs, not on which file first forced the directory out.
var dirTime = time.Unix(0, 0)

// Writer streams tar entries through a gzip compressor to a byte sink.
type Writer struct {
	gz     *gzip.Writer
	tw     *tar.Writer
	root   string
	dirs   map[string]struct{}
	closed bool
}

// Option configures a Writer.
type Option func(*config)

type config struct {
	root  string
	level int
}

// WithRoot nests all entries under a single top-level path component.
func WithRoot(prefix string) Option {
	return func(c *config) {
		c.root = prefix
	}
}

// WithLevel sets the gzip compression level.
func WithLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// NewWriter creates a tar+gzip writer targeting sink.
func NewWriter(sink io.Writer, opts ...Option) (*Writer, error) {
	cfg := config{level: gzip.DefaultCompression}
	for _, opt := range opts {
		opt(&cfg)
	}

	gz, err := gzip.NewWriterLevel(sink, cfg.level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	return &Writer{
		gz:   gz,
		tw:   tar.NewWriter(gz),
		root: cfg.root,
		dirs: make(map[string]struct{}),
	}, nil
}

// WriteFile adds one file entry, first emitting any ancestor directory
// records not yet present. The reader is consumed to EOF; info supplies the
// size, permission bits, and modification time (truncated to whole seconds,
// the resolution tar records).
func (w *Writer) WriteFile(subpath string, r io.Reader, info fs.FileInfo) error {
	if w.closed {
		return ErrClosed
	}

	name := subpath
	if w.root != "" {
		name = path.Join(w.root, subpath)
	}

	if err := w.ensureDir(path.Dir(name)); err != nil {
		return err
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     info.Size(),
		Mode:     int64(info.Mode().Perm()),
		ModTime:  info.ModTime().Truncate(time.Second),
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	if _, err := io.Copy(w.tw, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ensureDir emits directory records for dir and all of its ancestors,
// root-to-leaf, each exactly once. Re-inserting a path whose record was
// already emitted is a no-op.
func (w *Writer) ensureDir(dir string) error {
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	if _, ok := w.dirs[dir]; ok {
		return nil
	}
	if err := w.ensureDir(path.Dir(dir)); err != nil {
		return err
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeDir,
		Name:     dir + "/",
		Mode:     dirMode,
		ModTime:  dirTime,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write directory %s: %w", dir, err)
	}
	w.dirs[dir] = struct{}{}
	return nil
}

// Close flushes the tar stream and the gzip compressor.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("close tar stream: %w", err)
	}
	if err := w.gz.Close(); err != nil {
		return fmt.Errorf("close gzip stream: %w", err)
	}
	return nil
}
