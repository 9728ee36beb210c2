package parcel

// Format selects the archive container and its compression level.
type Format struct {
	kind  formatKind
	level int
}

type formatKind uint8

const (
	kindTarGz formatKind = iota
	kindZip
)

// TarGz selects a gzip-compressed tar stream. Levels follow gzip
// conventions: 1 fastest through 9 best, -1 for the default.
func TarGz(level int) Format {
	return Format{kind: kindTarGz, level: level}
}

// Zip selects a PK zip stream with deflate-compressed entries. Levels follow
// deflate conventions: 1 fastest through 9 best, -1 for the default.
func Zip(level int) Format {
	return Format{kind: kindZip, level: level}
}

// Extension returns the file extension archives of this format carry.
func (f Format) Extension() string {
	if f.kind == kindZip {
		return ".zip"
	}
	return ".tar.gz"
}

func (f Format) String() string {
	if f.kind == kindZip {
		return "zip"
	}
	return "tar.gz"
}
