package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"untagged/checker-go/pkg/driver"
)

const homeEnv = "UNTAGGED_HOME"

func resolveUntaggedHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv(homeEnv)); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve %s %q: %w", homeEnv, home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".untagged"), nil
}

func lockfilePath(manifest *driver.Manifest) string {
	return filepath.Join(manifest.Dir(), driver.LockfileFileName)
}

// gitCheckoutDir is where a pinned git dependency lives inside the cache.
func gitCheckoutDir(cacheDir, name, version string) string {
	return filepath.Join(cacheDir, "pkg", "src", driver.SanitizeName(name), sanitizePathSegment(version))
}

// searchPathsFromLock turns locked packages into loader roots.
func searchPathsFromLock(manifest *driver.Manifest, lock *driver.Lockfile, cacheDir string) ([]driver.SearchPath, error) {
	paths := make([]driver.SearchPath, 0, len(lock.Packages))
	for _, pkg := range lock.Packages {
		dir, err := resolvePackageSourcePath(pkg, manifest.Dir(), cacheDir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, driver.SearchPath{Path: dir, Name: pkg.Name})
	}
	return paths, nil
}

func resolvePackageSourcePath(pkg *driver.LockedPackage, manifestRoot, cacheDir string) (string, error) {
	source := strings.TrimSpace(pkg.Source)
	switch {
	case strings.HasPrefix(source, "path:"):
		pathSpec := strings.TrimSpace(strings.TrimPrefix(source, "path:"))
		if pathSpec == "" {
			return "", fmt.Errorf("lockfile: package %s has an empty path source", pkg.Name)
		}
		if filepath.IsAbs(pathSpec) {
			return filepath.Clean(pathSpec), nil
		}
		return filepath.Join(manifestRoot, filepath.FromSlash(pathSpec)), nil
	case strings.HasPrefix(source, "git+"):
		if pkg.Version == "" {
			return "", fmt.Errorf("lockfile: git package %s has no pinned version", pkg.Name)
		}
		return gitCheckoutDir(cacheDir, pkg.Name, pkg.Version), nil
	default:
		return "", fmt.Errorf("lockfile: package %s has unsupported source %q", pkg.Name, source)
	}
}
