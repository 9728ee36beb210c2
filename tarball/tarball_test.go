package tarball

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryOrdering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	writeEntry(t, w, "a/b/c.txt", "content of c")
	writeEntry(t, w, "a/b/d.txt", "content of d")
	require.NoError(t, w.Close())

	names := readNames(t, &buf)
	assert.Equal(t, []string{"a/", "a/b/", "a/b/c.txt", "a/b/d.txt"}, names,
		"each ancestor once, strictly before everything nested beneath it")
}

func TestRootPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, WithRoot("app-1.0"), WithLevel(gzip.BestCompression))
	require.NoError(t, err)

	writeEntry(t, w, "bin/app", "binary")
	writeEntry(t, w, "readme", "docs")
	require.NoError(t, w.Close())

	names := readNames(t, &buf)
	assert.Equal(t, []string{"app-1.0/", "app-1.0/bin/", "app-1.0/bin/app", "app-1.0/readme"}, names)
}

func TestFileMetadata(t *testing.T) {
	t.Parallel()

	modTime := time.Date(2024, 6, 15, 10, 30, 42, 123_456_789, time.UTC)
	content := strings.Repeat("data ", 100)

	path := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	require.NoError(t, os.Chtimes(path, modTime, modTime))

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	info, err := f.Stat()
	require.NoError(t, err)
	require.NoError(t, w.WriteFile("bin/tool", f, info))
	require.NoError(t, f.Close())
	require.NoError(t, w.Close())

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	// Skip the synthesized bin/ record.
	hdr, err := tr.Next()
	require.NoError(t, err)
	require.Equal(t, "bin/", hdr.Name)
	assert.Equal(t, byte(tar.TypeDir), hdr.Typeflag)

	hdr, err = tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "bin/tool", hdr.Name)
	assert.Equal(t, int64(len(content)), hdr.Size)
	assert.Equal(t, int64(0o755), hdr.Mode)
	assert.True(t, hdr.ModTime.Equal(modTime.Truncate(time.Second)),
		"mtime truncated to whole seconds, got %v", hdr.ModTime)

	data, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestWriteAfterClose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.WriteFile("late", strings.NewReader("x"), nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Close(), ErrClosed)
}

func TestInvalidLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	_, err := NewWriter(&buf, WithLevel(42))
	assert.Error(t, err)
}

// writeEntry stages content in a real file and streams it into the writer.
func writeEntry(t *testing.T, w *Writer, name, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "entry")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	require.NoError(t, w.WriteFile(name, f, info))
}

// readNames decompresses the archive and returns entry names in stream order.
func readNames(t *testing.T, r io.Reader) []string {
	t.Helper()

	gz, err := gzip.NewReader(r)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}
