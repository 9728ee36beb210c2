package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o755

	recordName = "entry.cbor"
)

// Disk implements Cache using the local filesystem. Each key owns one slot
// directory (sharded by hex prefix) holding the archive file under its own
// name plus a CBOR record describing it. A slot becomes visible only once
// its record has been renamed into place.
type Disk struct {
	dir            string
	shardPrefixLen int
	dirPerm        os.FileMode
}

// DiskOption configures a disk cache.
type DiskOption func(*Disk)

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) DiskOption {
	return func(d *Disk) {
		d.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) DiskOption {
	return func(d *Disk) {
		d.dirPerm = mode
	}
}

// diskRecord is the committed slot metadata.
type diskRecord struct {
	Name    string    `cbor:"1,keyasint"`
	Size    int64     `cbor:"2,keyasint"`
	BuiltAt time.Time `cbor:"3,keyasint"`
}

// NewDisk creates a disk-backed cache rooted at dir.
func NewDisk(dir string, opts ...DiskOption) (*Disk, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	d := &Disk{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if err := os.MkdirAll(dir, d.dirPerm); err != nil {
		return nil, err
	}
	return d, nil
}

// Lookup reads the slot record for key and reports the archive path it
// names. A slot with a record but a missing archive file is treated as a
// miss so a torn slot never surfaces as a hit.
func (d *Disk) Lookup(key Key) (string, bool) {
	slot := d.slotDir(key)
	data, err := os.ReadFile(filepath.Join(slot, recordName))
	if err != nil {
		return "", false
	}
	var rec diskRecord
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return "", false
	}

	archive := filepath.Join(slot, rec.Name)
	info, err := os.Stat(archive)
	if err != nil || info.Size() != rec.Size {
		return "", false
	}
	return archive, true
}

// Commit moves the archive at path into key's slot and writes its record.
// The record is staged to a temporary file and renamed, so a crash mid-commit
// leaves the slot invisible rather than torn.
func (d *Disk) Commit(key Key, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}

	slot := d.slotDir(key)
	if err := os.MkdirAll(slot, d.dirPerm); err != nil {
		return "", err
	}

	dest := filepath.Join(slot, filepath.Base(path))
	if err := moveFile(path, dest); err != nil {
		return "", fmt.Errorf("move archive into cache: %w", err)
	}

	rec := diskRecord{
		Name:    filepath.Base(path),
		Size:    info.Size(),
		BuiltAt: time.Now().UTC(),
	}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode cache record: %w", err)
	}

	tmp, err := os.CreateTemp(slot, "record-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(slot, recordName)); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return dest, nil
}

func (d *Disk) slotDir(key Key) string {
	k := string(key)
	if d.shardPrefixLen <= 0 {
		return filepath.Join(d.dir, k)
	}
	prefixLen := d.shardPrefixLen
	if prefixLen > len(k) {
		prefixLen = len(k)
	}
	return filepath.Join(d.dir, k[:prefixLen], k)
}

// moveFile renames src to dest, falling back to copy-and-remove when the
// staging area lives on a different filesystem.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return os.Remove(src)
}
