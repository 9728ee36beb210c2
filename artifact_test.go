package parcel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactDefaultPlacement(t *testing.T) {
	t.Parallel()

	a := New("pkg-1.0", TarGz(6))
	a.AddArtifact(Artifact{
		Kind:          KindExe,
		Binary:        Path("out/app"),
		DebugSymbols:  Path("out/app.pdb"),
		ImportLibrary: Path("out/app.lib"),
		Header:        Path("out/app.h"),
	}, ArtifactOptions{})

	assert.Equal(t, []fileEntry{
		{subdir: "bin", source: Path("out/app")},
		{subdir: "bin", source: Path("out/app.pdb")},
		{subdir: "lib", source: Path("out/app.lib")},
		{subdir: "include", source: Path("out/app.h")},
	}, a.entries)
}

func TestArtifactKindSubdirs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind ArtifactKind
		want string
	}{
		{KindExe, "bin"},
		{KindTest, "bin"},
		{KindSharedLib, "bin"},
		{KindStaticLib, "lib"},
		{KindObject, "obj"},
	}
	for _, tc := range cases {
		a := New("pkg-1.0", TarGz(6))
		a.AddArtifact(Artifact{Kind: tc.kind, Binary: Path("out/thing")}, ArtifactOptions{})
		assert.Equal(t, tc.want, a.entries[0].subdir, "kind %d", tc.kind)
	}
}

func TestArtifactOverrides(t *testing.T) {
	t.Parallel()

	a := New("pkg-1.0", TarGz(6))
	a.AddArtifact(Artifact{
		Kind:         KindExe,
		Binary:       Path("out/app"),
		DebugSymbols: Path("out/app.pdb"),
		Header:       Path("out/app.h"),
	}, ArtifactOptions{
		Binary:       Placement{Subdir: "tools"},
		DebugSymbols: Placement{Disabled: true},
	})

	assert.Equal(t, []fileEntry{
		{subdir: "tools", source: Path("out/app")},
		{subdir: "include", source: Path("out/app.h")},
	}, a.entries)
}

func TestArtifactNilSourcesSkipped(t *testing.T) {
	t.Parallel()

	a := New("pkg-1.0", Zip(6))
	a.AddArtifact(Artifact{Kind: KindStaticLib, Binary: Path("out/libfoo.a")}, ArtifactOptions{})

	assert.Len(t, a.entries, 1)
	assert.Equal(t, "lib", a.entries[0].subdir)
}
