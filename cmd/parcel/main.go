// Command parcel builds the archives described by a YAML manifest, reusing
// cached results for unchanged inputs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/burlindw/parcel"
	"github.com/burlindw/parcel/cache"
)

type manifest struct {
	Archives []manifestArchive `yaml:"archives"`
}

type manifestArchive struct {
	Name   string         `yaml:"name"`
	Format string         `yaml:"format"` // "tar.gz" (default) or "zip"
	Level  int            `yaml:"level"`  // 0 means the compressor default
	Files  []manifestFile `yaml:"files"`
}

type manifestFile struct {
	Source string `yaml:"source"`
	Subdir string `yaml:"subdir"`
}

func main() {
	logger := log.New(os.Stderr)

	var (
		manifestPath string
		cacheDir     string
		verbose      bool
	)

	root := &cobra.Command{
		Use:           "parcel",
		Short:         "Package files and build artifacts into cached release archives",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Build every archive in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logger.SetLevel(log.DebugLevel)
			}
			return runBuild(logger, manifestPath, cacheDir)
		},
	}
	build.Flags().StringVarP(&manifestPath, "manifest", "f", "parcel.yaml", "manifest file to build from")
	build.Flags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "content-addressed cache directory")
	build.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(build)

	if err := root.Execute(); err != nil {
		logger.Error("build failed", "err", err)
		os.Exit(1)
	}
}

func runBuild(logger *log.Logger, manifestPath, cacheDir string) error {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Archives) == 0 {
		return fmt.Errorf("manifest %s declares no archives", manifestPath)
	}

	c, err := cache.NewDisk(cacheDir)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	logger.Debug("cache ready", "dir", cacheDir)

	// Each archive owns a distinct fingerprint slot, so independent builds
	// can run concurrently.
	var g errgroup.Group
	for _, decl := range m.Archives {
		decl := decl
		g.Go(func() error {
			a, err := requestFromManifest(decl)
			if err != nil {
				return fmt.Errorf("%s: %w", decl.Name, err)
			}
			path, err := a.Build(c)
			if err != nil {
				return fmt.Errorf("%s: %w", decl.Name, err)
			}
			logger.Info("archive ready", "name", a.FileName(), "path", path)
			return nil
		})
	}
	return g.Wait()
}

func requestFromManifest(decl manifestArchive) (*parcel.Archive, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("archive has no name")
	}

	level := decl.Level
	if level == 0 {
		level = -1
	}

	var format parcel.Format
	switch decl.Format {
	case "", "tar.gz":
		format = parcel.TarGz(level)
	case "zip":
		format = parcel.Zip(level)
	default:
		return nil, fmt.Errorf("unknown format %q", decl.Format)
	}

	a := parcel.New(decl.Name, format)
	for _, f := range decl.Files {
		if f.Source == "" {
			return nil, fmt.Errorf("file entry has no source")
		}
		a.AddFile(parcel.Path(f.Source), f.Subdir)
	}
	return a, nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "parcel")
	}
	return ".parcel-cache"
}
