package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"untagged/checker-go/pkg/driver"
)

func writeGeometry(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "untagged.yml"), `
name: geometry
version: 1.2.0
`)
	writeFile(t, filepath.Join(dir, "src", "lib.rs"), `
pub struct Point { x: f32, y: f32 }
`)
}

func TestDepsInstallPathDependency(t *testing.T) {
	root := t.TempDir()
	t.Setenv(homeEnv, filepath.Join(root, "cache"))

	geometry := filepath.Join(root, "geometry")
	writeGeometry(t, geometry)

	app := filepath.Join(root, "app")
	manifestPath := filepath.Join(app, "untagged.yml")
	writeFile(t, manifestPath, `
name: app
dependencies:
  geometry:
    path: ../geometry
`)
	writeFile(t, filepath.Join(app, "src", "lib.rs"), `
use geometry::Point;

#[unsafe_enum]
pub enum Shape {
    At(Point),
    Raw(u64),
}
`)

	code, stdout, stderr := runCLI(t, "deps", "install", "--manifest", manifestPath)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "linked geometry 1.2.0 ("+geometry+")")
	require.Contains(t, stdout, "Created untagged.lock")

	lock, err := driver.LoadLockfile(filepath.Join(app, driver.LockfileFileName))
	require.NoError(t, err)
	require.Equal(t, "app", lock.Root)
	pkg, ok := lock.Package("geometry")
	require.True(t, ok)
	require.Equal(t, "1.2.0", pkg.Version)
	require.Equal(t, "path:"+geometry, pkg.Source)
	require.Empty(t, pkg.Checksum)

	code, stdout, stderr = runCLI(t, "deps", "install", "--manifest", manifestPath)
	require.Equal(t, 0, code, stderr)
	require.Contains(t, stdout, "untagged.lock already up to date")

	code, stdout, stderr = runCLI(t, "check", app)
	require.Equal(t, 0, code, stderr)
	require.Equal(t, "check: ok\n", stdout)
}

func TestCheckRequiresLockfileForDependencies(t *testing.T) {
	root := t.TempDir()
	writeGeometry(t, filepath.Join(root, "geometry"))
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "untagged.yml"), `
name: app
dependencies:
  geometry:
    path: ../geometry
`)
	writeFile(t, filepath.Join(app, "src", "lib.rs"), "use geometry::Point;\n")

	code, _, stderr := runCLI(t, "check", app)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "run `untagged deps install`")
}

func TestDependencyInstallerGitBranch(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeGeometry(t, repo)
	rev := initGitRepo(t, repo)

	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "untagged.yml"), `
name: app
dependencies:
  geometry:
    git: `+repo+`
    branch: master
`)
	manifest, err := driver.LoadManifest(filepath.Join(app, "untagged.yml"))
	require.NoError(t, err)

	cacheDir := filepath.Join(root, "cache")
	installer := newDependencyInstaller(manifest, cacheDir, nil)
	lock := driver.NewLockfile(manifest.Name, cliToolVersion)

	changed, err := installer.Install(lock)
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, lock.Packages, 1)

	pkg := lock.Packages[0]
	require.Equal(t, "geometry", pkg.Name)
	require.Equal(t, fmt.Sprintf("master@%s", rev), pkg.Version)
	require.Equal(t, fmt.Sprintf("git+%s@%s", repo, rev), pkg.Source)
	require.NotEmpty(t, pkg.Checksum)

	checkout := gitCheckoutDir(cacheDir, pkg.Name, pkg.Version)
	_, err = os.Stat(filepath.Join(checkout, "src", "lib.rs"))
	require.NoError(t, err)

	dir, err := resolvePackageSourcePath(pkg, app, cacheDir)
	require.NoError(t, err)
	require.Equal(t, checkout, dir)

	changed, err = installer.Install(lock)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestDependencyInstallerDetectsCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "untagged.yml"), `
name: a
dependencies:
  b:
    path: ../b
`)
	writeFile(t, filepath.Join(root, "b", "untagged.yml"), `
name: b
dependencies:
  a:
    path: ../a
`)
	writeFile(t, filepath.Join(root, "app", "untagged.yml"), `
name: app
dependencies:
  a:
    path: ../a
`)
	manifest, err := driver.LoadManifest(filepath.Join(root, "app", "untagged.yml"))
	require.NoError(t, err)

	_, err = newDependencyInstaller(manifest, filepath.Join(root, "cache"), nil).Install(driver.NewLockfile("app", cliToolVersion))
	require.Error(t, err)
	require.Contains(t, err.Error(), "dependency cycle detected at a")
}

func TestDepsInstallReportsMissingPath(t *testing.T) {
	root := t.TempDir()
	t.Setenv(homeEnv, filepath.Join(root, "cache"))
	manifestPath := filepath.Join(root, "app", "untagged.yml")
	writeFile(t, manifestPath, `
name: app
dependencies:
  missing:
    path: ../missing
`)

	code, _, stderr := runCLI(t, "deps", "install", "--manifest", manifestPath)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "failed to resolve dependencies:")
	require.Contains(t, stderr, `dependency "missing"`)
	_, err := os.Stat(filepath.Join(root, "app", driver.LockfileFileName))
	require.True(t, os.IsNotExist(err))
}
