package parcel

// Source is a deferred reference to a file, resolved to a concrete
// filesystem path at build time. Build systems can implement Source over
// not-yet-materialized outputs; existence is not checked until Build runs.
type Source interface {
	Resolve() (string, error)
}

// Path returns a Source for a fixed filesystem path.
func Path(p string) Source {
	return pathSource(p)
}

type pathSource string

func (s pathSource) Resolve() (string, error) {
	return string(s), nil
}

// ArtifactKind classifies a build artifact and determines the default
// subdirectory its binary lands in.
type ArtifactKind uint8

const (
	// KindExe is an executable program. Default subdirectory: bin.
	KindExe ArtifactKind = iota

	// KindTest is a test executable. Default subdirectory: bin.
	KindTest

	// KindSharedLib is a dynamic library. Default subdirectory: bin.
	KindSharedLib

	// KindStaticLib is a static library. Default subdirectory: lib.
	KindStaticLib

	// KindObject is a relocatable object file. Default subdirectory: obj.
	KindObject
)

func (k ArtifactKind) defaultSubdir() string {
	switch k {
	case KindStaticLib:
		return "lib"
	case KindObject:
		return "obj"
	default:
		return "bin"
	}
}

// Artifact groups the files one build step can emit. Only Binary is
// typically present; the rest appear for particular targets (debug symbols
// alongside stripped binaries, import libraries on Windows, emitted
// headers). Nil sources are skipped.
type Artifact struct {
	Kind          ArtifactKind
	Binary        Source
	DebugSymbols  Source
	ImportLibrary Source
	Header        Source
}

// Placement overrides where one artifact category lands in the archive.
// The zero value keeps the category enabled at its default subdirectory.
type Placement struct {
	// Disabled excludes the category from the archive entirely.
	Disabled bool

	// Subdir redirects the category; empty means the category default.
	Subdir string
}

// ArtifactOptions carries per-category placement overrides for AddArtifact.
type ArtifactOptions struct {
	Binary        Placement
	DebugSymbols  Placement
	ImportLibrary Placement
	Header        Placement
}
