package parcel

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/burlindw/parcel/cache"
	"github.com/burlindw/parcel/tarball"
	"github.com/burlindw/parcel/zipfile"
)

// Archive is a request to package a set of files into one compressed
// archive. It is populated by Add calls and consumed exactly once by Build.
type Archive struct {
	name    string
	format  Format
	entries []fileEntry
	built   bool
}

// fileEntry is one requested input. Identity is positional: two entries may
// reference identical content.
type fileEntry struct {
	subdir string
	source Source
}

// resolvedEntry is a fileEntry pinned to a concrete path and stat result.
type resolvedEntry struct {
	subdir string
	path   string
	info   fs.FileInfo
}

// New creates an empty archive request. All entries will nest under a
// single top-level directory named after the archive.
func New(name string, format Format) *Archive {
	return &Archive{name: name, format: format}
}

// AddFile registers a file to be copied under subdir at its original base
// name. An empty subdir places the file at the archive root. The source is
// not checked for existence until Build.
func (a *Archive) AddFile(source Source, subdir string) {
	a.entries = append(a.entries, fileEntry{subdir: subdir, source: source})
}

// AddArtifact derives up to four file entries from one build artifact,
// using the default subdirectory rules for its kind. Each category may be
// disabled or redirected through opts.
func (a *Archive) AddArtifact(artifact Artifact, opts ArtifactOptions) {
	a.addCategory(artifact.Binary, opts.Binary, artifact.Kind.defaultSubdir())
	a.addCategory(artifact.DebugSymbols, opts.DebugSymbols, "bin")
	a.addCategory(artifact.ImportLibrary, opts.ImportLibrary, "lib")
	a.addCategory(artifact.Header, opts.Header, "include")
}

func (a *Archive) addCategory(source Source, placement Placement, defaultSubdir string) {
	if source == nil || placement.Disabled {
		return
	}
	subdir := placement.Subdir
	if subdir == "" {
		subdir = defaultSubdir
	}
	a.entries = append(a.entries, fileEntry{subdir: subdir, source: source})
}

// FileName returns the archive's file name: the archive name plus the
// extension its format dictates.
func (a *Archive) FileName() string {
	return a.name + a.format.Extension()
}

// Build resolves every entry, fingerprints the request, and returns the
// path of the finished archive. When the cache holds a prior result for the
// fingerprint, that path is returned without writing anything; otherwise
// the archive is written to a staging file and committed to the cache only
// after all bytes are durably flushed.
//
// Any failure aborts the whole build with nothing committed; there is no
// partial-success path. A request can be built only once.
func (a *Archive) Build(c cache.Cache) (string, error) {
	if a.built {
		return "", ErrConsumed
	}
	a.built = true

	resolved, err := a.resolve()
	if err != nil {
		return "", err
	}

	key, err := a.fingerprint(resolved)
	if err != nil {
		return "", err
	}

	if prior, ok := c.Lookup(key); ok {
		return prior, nil
	}

	stage, err := os.MkdirTemp("", "parcel-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	out := filepath.Join(stage, a.FileName())
	if err := a.write(out, resolved); err != nil {
		return "", err
	}

	final, err := c.Commit(key, out)
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", a.FileName(), err)
	}
	return final, nil
}

// resolve pins every entry to a concrete path and stat result. An
// unreadable source is fatal for the whole build.
func (a *Archive) resolve() ([]resolvedEntry, error) {
	resolved := make([]resolvedEntry, 0, len(a.entries))
	for _, e := range a.entries {
		p, err := e.source.Resolve()
		if err != nil {
			return nil, fmt.Errorf("resolve source: %w", err)
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat source: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", p)
		}
		resolved = append(resolved, resolvedEntry{subdir: e.subdir, path: p, info: info})
	}
	return resolved, nil
}

// fingerprint folds the archive identity and every entry's layout and full
// content into a cache key. Timestamps are deliberately excluded: content
// decides reuse, not mtime noise.
func (a *Archive) fingerprint(entries []resolvedEntry) (cache.Key, error) {
	fp := cache.NewFingerprint()
	fp.WriteString(a.name)
	fp.WriteString(a.format.String())
	fp.WriteUint64(uint64(int64(a.format.level)))

	for _, e := range entries {
		fp.WriteString(e.subdir)
		fp.WriteString(filepath.Base(e.path))

		f, err := os.Open(e.path)
		if err != nil {
			return "", fmt.Errorf("open source: %w", err)
		}
		_, err = io.Copy(fp, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", e.path, err)
		}
	}
	return fp.Key(), nil
}

// formatWriter is the uniform contract both format writers satisfy.
type formatWriter interface {
	WriteFile(subpath string, r io.Reader, info fs.FileInfo) error
	Close() error
}

func (a *Archive) write(out string, entries []resolvedEntry) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	err = a.writeTo(f, entries)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("flush archive: %w", err)
	}
	return f.Close()
}

func (a *Archive) writeTo(sink io.Writer, entries []resolvedEntry) error {
	var w formatWriter
	switch a.format.kind {
	case kindZip:
		w = zipfile.NewWriter(sink,
			zipfile.WithRoot(a.name),
			zipfile.WithLevel(a.format.level),
		)
	default:
		tw, err := tarball.NewWriter(sink,
			tarball.WithRoot(a.name),
			tarball.WithLevel(a.format.level),
		)
		if err != nil {
			return err
		}
		w = tw
	}

	for _, e := range entries {
		if err := writeEntry(w, e); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeEntry(w formatWriter, e resolvedEntry) error {
	src, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	name := filepath.Base(e.path)
	if e.subdir != "" {
		name = path.Join(e.subdir, name)
	}
	return w.WriteFile(name, src, e.info)
}
