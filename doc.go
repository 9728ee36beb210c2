// Package parcel packages files and build artifacts into a single portable
// compressed archive, either gzip-compressed tar or PK zip, and avoids
// redundant rebuilds through content-addressed caching.
//
// An [Archive] is populated with plain files and multi-part artifacts, then
// consumed exactly once by [Archive.Build]:
//
//	a := parcel.New("myapp-1.0", parcel.TarGz(9))
//	a.AddFile(parcel.Path("README.md"), "doc")
//	a.AddArtifact(parcel.Artifact{
//	    Kind:   parcel.KindExe,
//	    Binary: parcel.Path("out/bin/myapp"),
//	}, parcel.ArtifactOptions{})
//
//	c, err := cache.NewDisk("/var/cache/parcel")
//	if err != nil {
//	    return err
//	}
//	path, err := a.Build(c)
//
// Build fingerprints every input's layout and content; when an identical
// request was built before, the prior archive path is returned without
// touching the filesystem. All entries nest under a top-level directory
// equal to the archive name.
//
// The format writers live in the [github.com/burlindw/parcel/tarball] and
// [github.com/burlindw/parcel/zipfile] subpackages and can be driven
// directly against any io.Writer sink.
package parcel
