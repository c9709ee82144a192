package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644))
	return path
}

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: ffi-shapes
version: "0.3.1"
sources: [src, gen]
target:
  pointer_width: 4
policy:
  payload: copy-only
dependencies:
  geometry:
    path: ../geometry
  bits:
    git: https://example.com/bits.git
    tag: v1.2.0
`)

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	require.Equal(t, "ffi_shapes", manifest.Name)
	require.Equal(t, "0.3.1", manifest.Version)
	require.Equal(t, 4, manifest.Target.PointerWidth)
	require.Equal(t, "copy-only", manifest.Policy.Payload)

	dirs := manifest.SourceDirs()
	require.Len(t, dirs, 2)
	require.Equal(t, filepath.Join(filepath.Dir(path), "gen"), dirs[1])
	require.Equal(t, []string{"bits", "geometry"}, manifest.DependencyNames())

	bits := manifest.Dependencies["bits"]
	require.NotNil(t, bits)
	require.NotEmpty(t, bits.Git)
	require.Equal(t, "v1.2.0", bits.Tag)
	geometry := manifest.Dependencies["geometry"]
	require.NotNil(t, geometry)
	require.Equal(t, "../geometry", geometry.Path)
}

func TestLoadManifestDefaultsSources(t *testing.T) {
	manifest, err := LoadManifest(writeManifest(t, "name: app\n"))
	require.NoError(t, err)
	dirs := manifest.SourceDirs()
	require.Len(t, dirs, 1)
	require.Equal(t, DefaultSourceDir, filepath.Base(dirs[0]))
}

func TestLoadManifestValidationIssues(t *testing.T) {
	path := writeManifest(t, `
version: "not a version"
target:
  pointer_width: 2
policy:
  payload: leaky
dependencies:
  both:
    path: ../x
    git: https://example.com/x.git
    rev: abc
  floating:
    git: https://example.com/y.git
  pinned-path:
    path: ../z
    branch: main
`)

	_, err := LoadManifest(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	message := verr.Error()
	for _, fragment := range []string{
		"name must be provided",
		`invalid version "not a version"`,
		"target.pointer_width must be 4 or 8, got 2",
		`policy.payload "leaky"`,
		"dependencies.both: path dependencies cannot also specify git",
		"dependencies.floating: git dependencies require rev, tag, or branch",
		"dependencies.pinned-path: rev, tag and branch apply only to git dependencies",
	} {
		require.Contains(t, message, fragment)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	_, err := LoadManifest(writeManifest(t, "name: app\nlicense: MIT\n"))
	require.ErrorContains(t, err, "license")
}

func TestLoadManifestEmptyFile(t *testing.T) {
	_, err := LoadManifest(writeManifest(t, ""))
	require.ErrorContains(t, err, "is empty")
}

func TestFindManifestWalksUp(t *testing.T) {
	path := writeManifest(t, "name: app\n")
	nested := filepath.Join(filepath.Dir(path), "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindManifest(nested)
	require.NoError(t, err)
	require.Equal(t, path, found)

	if _, err := FindManifest(t.TempDir()); err != nil {
		require.ErrorIs(t, err, ErrManifestNotFound)
	}
}
